/*
Package resolve fills replayed job events with off-chain contents.

Resolution runs after the replay and is best-effort: contents which can't be
fetched or decrypted are replaced with cas.Placeholder, the job state is
never affected.
*/
package resolve

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/cas"
	"github.com/nspcc-dev/jobmarket/envelope"
	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/jobmarket/job"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// ContentSource fetches and opens contents by their hashes.
type ContentSource interface {
	FetchContent(ctx context.Context, h util.Uint256, key []byte) ([]byte, error)
}

// Prm groups parameters of New.
type Prm struct {
	// Logger is used for debug messages. Nil means no logging.
	Logger *zap.Logger
	// Contents is the content store.
	Contents ContentSource
	// Keys provides session keys.
	Keys KeyRing
	// Concurrency limits the number of parallel fetches. Zero means
	// default limit.
	Concurrency int
}

// Resolver resolves contents of the job events.
type Resolver struct {
	log         *zap.Logger
	contents    ContentSource
	keys        KeyRing
	concurrency int
}

// New creates Resolver.
func New(prm Prm) *Resolver {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.Concurrency <= 0 {
		prm.Concurrency = defaultConcurrency
	}
	return &Resolver{
		log:         prm.Logger,
		contents:    prm.Contents,
		keys:        prm.Keys,
		concurrency: prm.Concurrency,
	}
}

// task resolves a single content. idx is the event index, -1 for the prior
// snapshot.
type task struct {
	idx               int
	what              string
	sender, recipient util.Uint160
	run               func(ctx context.Context, key []byte) error
}

// Target groups parameters of Resolver.Resolve.
type Target struct {
	// JobID is the job the events belong to.
	JobID uint256.Int
	// Prior is the snapshot the events were reduced from, nil if the events
	// start from Created. Its Content and Result are resolved and carried
	// forward to the events.
	Prior *job.Job
	// Events are the reduced events to fill.
	Events []job.EventWithDiffs
}

// Resolve fetches all contents referenced by the events and writes them
// into event details and Content/Result of the job snapshots. Failed
// contents get cas.Placeholder. Returned error combines all failures and
// is informational only: events are always fully processed.
func (r *Resolver) Resolve(ctx context.Context, t Target) error {
	events := t.Events
	if len(events) == 0 && t.Prior == nil {
		return nil
	}

	final := t.Prior
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Job != nil {
			final = events[i].Job
			break
		}
	}
	if final == nil {
		return nil
	}

	var (
		tasks    []task
		contents = make([]*string, len(events))
		results  = make([]*string, len(events))
		seed     carried
	)
	if t.Prior != nil {
		tasks = r.priorTasks(t.Prior, &seed)
	}
	for i := range events {
		tasks = append(tasks, r.tasks(i, &events[i], final, contents, results)...)
	}

	var (
		mtx  sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(r.concurrency)
	for _, tk := range tasks {
		tk := tk
		g.Go(func() error {
			err := r.runTask(ctx, &t.JobID, tk)
			if err != nil {
				name := "prior snapshot"
				if tk.idx >= 0 {
					name = fmt.Sprintf("event #%d", events[tk.idx].ID)
				}
				r.log.Debug("content is not resolved",
					zap.String("source", name),
					zap.String("content", tk.what),
					zap.Error(err))

				mtx.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", name, tk.what, err))
				mtx.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if t.Prior != nil {
		t.Prior.Content, t.Prior.Result = seed.content, seed.result
	}
	carryForward(seed, events, contents, results)

	return errs
}

// carried is the resolved content and result of the job along with their
// hashes.
type carried struct {
	content, result         string
	contentHash, resultHash util.Uint256
}

// priorTasks resolves contents of the prior snapshot into seed.
func (r *Resolver) priorTasks(prior *job.Job, seed *carried) []task {
	fetch := r.fetcher()
	seed.contentHash, seed.resultHash = prior.ContentHash, prior.ResultHash

	var res []task
	if !prior.ContentHash.Equals(util.Uint256{}) {
		res = append(res, task{-1, "content", prior.Roles.Creator, util.Uint160{}, fetch(prior.ContentHash, &seed.content)})
	}
	if !prior.ResultHash.Equals(util.Uint256{}) {
		res = append(res, task{-1, "result", prior.Roles.Worker, prior.Roles.Creator, fetch(prior.ResultHash, &seed.result)})
	}
	return res
}

func (r *Resolver) fetcher() func(h util.Uint256, dst *string) func(context.Context, []byte) error {
	return func(h util.Uint256, dst *string) func(context.Context, []byte) error {
		*dst = cas.Placeholder
		return func(ctx context.Context, key []byte) error {
			res, err := r.contents.FetchContent(ctx, h, key)
			if err != nil {
				return err
			}
			*dst = string(res)
			return nil
		}
	}
}

func (r *Resolver) runTask(ctx context.Context, jobID *uint256.Int, t task) error {
	key, err := r.keys.SessionKey(ctx, t.sender, t.recipient, jobID)
	if err != nil {
		return fmt.Errorf("get session key: %w", err)
	}
	return t.run(ctx, key)
}

// tasks returns resolution tasks of the event. Resolved job description
// and result are stored in contents and results by event index.
func (r *Resolver) tasks(idx int, ev *job.EventWithDiffs, final *job.Job, contents, results []*string) []task {
	if ev.DecodeErr != nil || ev.Job == nil {
		return nil
	}

	roles := ev.Job.Roles
	if roles.Worker.Equals(util.Uint160{}) {
		roles.Worker = final.Roles.Worker
	}
	if roles.Arbitrator.Equals(util.Uint160{}) {
		roles.Arbitrator = final.Roles.Arbitrator
	}

	fetch := r.fetcher()

	switch d := ev.Details.(type) {
	case *event.CreatedDetails:
		if d.ContentHash.Equals(util.Uint256{}) {
			return nil
		}
		contents[idx] = &d.Content
		return []task{{idx, "content", roles.Creator, util.Uint160{}, fetch(d.ContentHash, &d.Content)}}
	case *event.UpdatedDetails:
		if d.ContentHash.Equals(util.Uint256{}) {
			return nil
		}
		contents[idx] = &d.Content
		return []task{{idx, "content", roles.Creator, util.Uint160{}, fetch(d.ContentHash, &d.Content)}}
	case *event.MessageDetails:
		sender, recipient := roles.Creator, roles.Worker
		if d.Type == event.WorkerMessage {
			sender, recipient = ev.Address, roles.Creator
		}
		return []task{{idx, "message", sender, recipient, fetch(d.ContentHash, &d.Content)}}
	case *event.ArbitratedDetails:
		if d.ReasonHash.Equals(util.Uint256{}) {
			return nil
		}
		return []task{{idx, "reason", roles.Arbitrator, roles.Creator, fetch(d.ReasonHash, &d.Reason)}}
	case *event.DisputedDetails:
		d.DecryptedSessionKey = cas.Placeholder
		d.DecryptedContent = cas.Placeholder
		return []task{{idx, "dispute", ev.Address, roles.Arbitrator, func(_ context.Context, key []byte) error {
			sk, err := envelope.Open(d.SessionKey, key)
			if err != nil {
				return fmt.Errorf("open session key: %w", err)
			}
			d.DecryptedSessionKey = hex.EncodeToString(sk)

			content, err := envelope.Open(d.Content, key)
			if err != nil {
				return fmt.Errorf("open content: %w", err)
			}
			d.DecryptedContent = string(content)
			return nil
		}}}
	}

	if ev.Type == event.Delivered && !ev.Job.ResultHash.Equals(util.Uint256{}) {
		res := new(string)
		results[idx] = res
		return []task{{idx, "result", roles.Worker, roles.Creator, fetch(ev.Job.ResultHash, res)}}
	}
	return nil
}

// carryForward sets Content and Result of the snapshots. Snapshots keep
// the previously resolved value while the corresponding hash is the same.
func carryForward(cur carried, events []job.EventWithDiffs, contents, results []*string) {
	for i := range events {
		j := events[i].Job
		if j == nil {
			continue
		}

		switch {
		case contents[i] != nil:
			cur.content, cur.contentHash = *contents[i], j.ContentHash
		case j.ContentHash != cur.contentHash:
			cur.content, cur.contentHash = "", j.ContentHash
		}
		j.Content = cur.content

		switch {
		case results[i] != nil:
			cur.result, cur.resultHash = *results[i], j.ResultHash
		case j.ResultHash != cur.resultHash:
			cur.result, cur.resultHash = "", j.ResultHash
		}
		j.Result = cur.result
	}
}

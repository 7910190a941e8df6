/*
Package replay materializes jobs from their event logs.

Run ties together event source (chain or dump), reducer, content resolver
and snapshot storage: it continues from the last stored snapshot, reduces
only new events, resolves their contents and stores the new snapshot.
*/
package replay

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/jobmarket/job"
	"github.com/nspcc-dev/jobmarket/resolve"
	"github.com/nspcc-dev/jobmarket/snapshot"
	"go.uber.org/zap"
)

const defaultPageSize = 64

// EventSource provides ordered job event logs.
type EventSource interface {
	// EventsCount returns the number of events in the job log.
	EventsCount(jobID *uint256.Int) (uint64, error)
	// Events returns at most limit events of the job log starting from the
	// given index.
	Events(jobID *uint256.Int, from, limit uint64) ([]event.JobEvent, error)
}

// Prm groups all parameters of the replay procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Source of the job events.
	Source EventSource

	// Optional snapshot storage. If set, replay continues from the stored
	// snapshot and stores the resulting one.
	Snapshots *snapshot.Store

	// Reducer of the events.
	Reducer *job.Reducer

	// Optional content resolver. If not set, contents are left empty.
	Resolver *resolve.Resolver

	// Job to replay.
	JobID uint256.Int

	// Number of events requested from the Source at once. Zero means
	// default.
	PageSize uint64
}

// Result is a result of Run.
type Result struct {
	// Job is the current state of the job.
	Job *job.Job
	// Applied is the total number of applied events.
	Applied uint64
	// Events are the events applied during this run.
	Events []job.EventWithDiffs
	// Unresolved combines failures of content resolution, nil if all
	// contents are resolved.
	Unresolved error
}

// Run replays the job log.
//
// Run fails if the log can't be read or reduced, content resolution
// failures are returned in Result.Unresolved.
func Run(ctx context.Context, prm Prm) (Result, error) {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.PageSize == 0 {
		prm.PageSize = defaultPageSize
	}

	log := prm.Logger.With(zap.String("job", prm.JobID.Dec()))

	var prior snapshot.Snapshot
	if prm.Snapshots != nil {
		var err error
		prior, err = prm.Snapshots.Get(ctx, &prm.JobID)
		if err != nil {
			return Result{}, fmt.Errorf("get stored snapshot: %w", err)
		}
		if prior.Job != nil {
			log.Info("continuing from stored snapshot", zap.Uint64("applied", prior.Applied))
		}
	}

	total, err := prm.Source.EventsCount(&prm.JobID)
	if err != nil {
		return Result{}, fmt.Errorf("get number of job events: %w", err)
	}
	if total < prior.Applied {
		return Result{}, fmt.Errorf("stored snapshot is ahead of the log: %d applied events, %d in the log", prior.Applied, total)
	}

	events, err := fetch(ctx, prm, prior.Applied, total)
	if err != nil {
		return Result{}, err
	}

	log.Debug("new events fetched", zap.Int("count", len(events)))

	applied, err := prm.Reducer.Reduce(job.ReducePrm{
		JobID:   prm.JobID,
		Prior:   prior.Job,
		FirstID: prior.Applied,
	}, events)
	if err != nil {
		return Result{}, fmt.Errorf("reduce job events: %w", err)
	}

	res := Result{
		Job:     prior.Job,
		Applied: total,
		Events:  applied,
	}
	for i := range applied {
		if applied[i].DecodeErr != nil {
			log.Warn("event skipped due to malformed payload",
				zap.Uint64("event", applied[i].ID),
				zap.Stringer("type", applied[i].Type),
				zap.Error(applied[i].DecodeErr))
		}
		if applied[i].Job != nil {
			res.Job = applied[i].Job
		}
	}

	if prm.Resolver != nil {
		res.Unresolved = prm.Resolver.Resolve(ctx, resolve.Target{
			JobID:  prm.JobID,
			Prior:  prior.Job,
			Events: applied,
		})
		if res.Unresolved != nil {
			log.Info("some contents are not resolved", zap.Error(res.Unresolved))
		}
	}

	if prm.Snapshots != nil && len(applied) > 0 && res.Job != nil {
		err = prm.Snapshots.Put(ctx, snapshot.Snapshot{Job: res.Job, Applied: total})
		if err != nil {
			return Result{}, fmt.Errorf("store snapshot: %w", err)
		}
		log.Info("snapshot stored", zap.Uint64("applied", total))
	}

	return res, nil
}

func fetch(ctx context.Context, prm Prm, from, to uint64) ([]event.JobEvent, error) {
	res := make([]event.JobEvent, 0, to-from)
	for from < to {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := prm.Source.Events(&prm.JobID, from, min(prm.PageSize, to-from))
		if err != nil {
			return nil, fmt.Errorf("get job events from #%d: %w", from, err)
		}
		if len(page) == 0 {
			return nil, fmt.Errorf("no events returned from #%d while %d are expected", from, to)
		}

		res = append(res, page...)
		from += uint64(len(page))
	}
	return res, nil
}

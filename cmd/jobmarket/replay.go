package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/jobmarket/eventlog"
	"github.com/nspcc-dev/jobmarket/job"
	"github.com/nspcc-dev/jobmarket/replay"
	"github.com/nspcc-dev/jobmarket/resolve"
	"github.com/nspcc-dev/jobmarket/snapshot"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var (
	jobFlag = cli.StringFlag{
		Name:  "job, j",
		Usage: "Decimal job identifier",
	}
	labelFlag = cli.StringFlag{
		Name:  "label",
		Usage: "Label of the blockchain environment (e.g. 'testnet')",
	}
	metricsFlag = cli.StringFlag{
		Name:  "metrics",
		Usage: "Write content store metrics to the given file in Prometheus text format",
	}
)

func replayCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:  "replay",
		Usage: "Materialize the job from its event log and print it along with the events",
		Flags: []cli.Flag{
			configFlag,
			jobFlag,
			labelFlag,
			metricsFlag,
			cli.StringFlag{
				Name:  "from-dump",
				Usage: "Read events from the dump directory instead of the blockchain",
			},
			cli.Uint64Flag{
				Name:  "page-size",
				Usage: "Number of events requested at once",
			},
			cli.BoolFlag{
				Name:  "fresh",
				Usage: "Ignore stored snapshot and replay from the first event",
			},
			cli.BoolFlag{
				Name:  "no-resolve",
				Usage: "Do not fetch off-chain contents",
			},
		},
		Action: func(c *cli.Context) error {
			return runReplay(ctx, c)
		},
	}
}

func runReplay(ctx context.Context, c *cli.Context) error {
	jobID, err := parseJobID(c.String("job"))
	if err != nil {
		return err
	}

	n, err := newNode(c)
	if err != nil {
		return err
	}
	defer n.close()

	layout, err := n.cfg.CreatedLayout()
	if err != nil {
		return err
	}

	prm := replay.Prm{
		Logger:   n.log,
		Reducer:  job.NewReducer(event.Decoder{CreatedLayout: layout}),
		JobID:    *jobID,
		PageSize: c.Uint64("page-size"),
	}

	var keySource resolve.PublicKeySource
	if dir := c.String("from-dump"); dir != "" {
		label := c.String("label")
		if label == "" {
			return errors.New("missing blockchain label of the dump")
		}
		r, err := eventlog.ReadLog(dir, eventlog.ID{Label: label, Job: *jobID})
		if err != nil {
			return fmt.Errorf("read dump: %w", err)
		}
		prm.Source = r
	} else {
		m, err := n.marketplace(ctx)
		if err != nil {
			return err
		}
		prm.Source = m
		keySource = m
	}

	if !c.Bool("fresh") {
		prm.Snapshots = snapshot.NewStore(n.store)
	}

	if !c.Bool("no-resolve") {
		prm.Resolver, err = n.resolver(ctx, keySource)
		if err != nil {
			return err
		}
	}

	res, err := replay.Run(ctx, prm)
	if err != nil {
		return err
	}

	if err := n.writeMetrics(c); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(newReplayView(res))
}

// resolver builds content resolver, nil if there is no content store.
// Public keys of the counterparties are read from the contract: pubs if
// set, otherwise the configured RPC endpoint. Without wallet or public keys
// only public contents are resolved.
func (n *node) resolver(ctx context.Context, pubs resolve.PublicKeySource) (*resolve.Resolver, error) {
	if n.cfg.ContentStore.GatewayEndpoint == "" {
		n.log.Info("content store gateway is not configured, contents are not resolved")
		return nil, nil
	}

	cs, err := n.contentStore()
	if err != nil {
		return nil, err
	}

	var ring resolve.KeyRing = resolve.StaticKeys{}

	s, err := n.signer()
	if err != nil {
		return nil, err
	}
	if s != nil && pubs == nil {
		if n.cfg.RPC.Endpoint == "" {
			n.log.Info("Neo RPC endpoint is not configured, public keys are unavailable and private contents are not resolved")
			s = nil
		} else {
			pubs, err = n.marketplace(ctx)
			if err != nil {
				return nil, err
			}
		}
	}
	if s != nil {
		acc, err := s.Address(ctx)
		if err != nil {
			return nil, fmt.Errorf("get wallet address: %w", err)
		}

		d, err := n.deriver()
		if err != nil {
			return nil, err
		}
		ring = resolve.NewWallet(d, s, pubs)

		n.log.Debug("contents are resolved on behalf of the wallet", zap.String("account", address.Uint160ToString(acc)))
	}

	return resolve.New(resolve.Prm{
		Logger:      n.log,
		Contents:    cs,
		Keys:        ring,
		Concurrency: n.cfg.Resolve.Concurrency,
	}), nil
}

func dumpCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:  "dump",
		Usage: "Save the job event log to the local directory",
		Flags: []cli.Flag{
			configFlag,
			jobFlag,
			labelFlag,
			cli.StringFlag{
				Name:  "out, o",
				Usage: "Output directory",
				Value: "testdata",
			},
		},
		Action: func(c *cli.Context) error {
			return runDump(ctx, c)
		},
	}
}

func runDump(ctx context.Context, c *cli.Context) error {
	jobID, err := parseJobID(c.String("job"))
	if err != nil {
		return err
	}
	label := c.String("label")
	if label == "" {
		return errors.New("missing blockchain label")
	}

	rootDir := c.String("out")
	if err := os.MkdirAll(rootDir, 0700); err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}

	n, err := newNode(c)
	if err != nil {
		return err
	}
	defer n.close()

	m, err := n.marketplace(ctx)
	if err != nil {
		return err
	}

	total, err := m.EventsCount(jobID)
	if err != nil {
		return fmt.Errorf("get number of job events: %w", err)
	}

	d, err := eventlog.NewCreator(rootDir, eventlog.ID{Label: label, Job: *jobID})
	if err != nil {
		return fmt.Errorf("init local dumper: %w", err)
	}
	defer d.Close()

	const pageSize = 64
	for from := uint64(0); from < total; {
		events, err := m.Events(jobID, from, pageSize)
		if err != nil {
			return fmt.Errorf("get job events from #%d: %w", from, err)
		}
		if len(events) == 0 {
			break
		}
		for i := range events {
			if err := d.Write(events[i]); err != nil {
				return err
			}
		}
		from += uint64(len(events))
	}

	if err := d.Flush(); err != nil {
		return fmt.Errorf("flush dump: %w", err)
	}

	n.log.Info("job events are successfully dumped",
		zap.String("job", jobID.Dec()), zap.Uint64("events", total), zap.String("dir", rootDir))
	return nil
}

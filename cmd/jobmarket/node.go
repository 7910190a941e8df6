package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/cache"
	"github.com/nspcc-dev/jobmarket/cas"
	"github.com/nspcc-dev/jobmarket/config"
	"github.com/nspcc-dev/jobmarket/rpc/marketplace"
	"github.com/nspcc-dev/jobmarket/sessionkey"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var configFlag = cli.StringFlag{
	Name:   "config, c",
	Usage:  "Path to the YAML configuration file",
	EnvVar: "JOBMARKET_CONFIG",
}

// node groups components built from the configuration. Fields are
// initialized on demand, close releases the opened ones.
type node struct {
	cfg     *config.Config
	log     *zap.Logger
	store   cache.Store
	bolt    *cache.Bolt
	metrics *prometheus.Registry

	rpc *rpcclient.Client
}

func newNode(c *cli.Context) (*node, error) {
	p := c.String("config")
	if p == "" {
		return nil, errors.New("missing configuration file")
	}

	cfg, err := config.Load(p)
	if err != nil {
		return nil, err
	}

	lvl, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	logCfg.Encoding = "console"
	log, err := logCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	n := &node{
		cfg:     cfg,
		log:     log,
		metrics: prometheus.NewRegistry(),
	}

	if cfg.Cache.Path != "" {
		n.bolt, err = cache.OpenBolt(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		n.store = n.bolt
	} else {
		n.store, err = cache.NewMemory(cfg.Cache.MemorySize)
		if err != nil {
			return nil, err
		}
	}

	return n, nil
}

func (n *node) close() {
	if n.rpc != nil {
		n.rpc.Close()
	}
	if n.bolt != nil {
		if err := n.bolt.Close(); err != nil {
			n.log.Warn("failed to close cache", zap.Error(err))
		}
	}
	_ = n.log.Sync()
}

// marketplace dials Neo RPC server and returns reader of the marketplace
// contract.
func (n *node) marketplace(ctx context.Context) (*marketplace.ContractReader, error) {
	if n.cfg.RPC.Endpoint == "" {
		return nil, errors.New("missing Neo RPC endpoint")
	}

	c, err := rpcclient.New(ctx, n.cfg.RPC.Endpoint, rpcclient.Options{
		DialTimeout:    n.cfg.RPC.DialTimeout,
		RequestTimeout: n.cfg.RPC.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}
	n.rpc = c

	var h util.Uint160
	if n.cfg.Contract.Address != "" {
		h, err = n.cfg.ContractHash()
	} else {
		h, err = marketplace.InferHash(c, n.cfg.Contract.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve marketplace contract: %w", err)
	}

	n.log.Debug("marketplace contract resolved", zap.String("hash", h.StringLE()))

	return marketplace.NewReader(invoker.New(c, nil), h), nil
}

func (n *node) contentStore() (*cas.Client, error) {
	return cas.New(cas.Prm{
		Logger:          n.log,
		UploadEndpoint:  n.cfg.ContentStore.UploadEndpoint,
		GatewayEndpoint: n.cfg.ContentStore.GatewayEndpoint,
		Secret:          n.cfg.ContentStore.Secret,
		SecretHeader:    n.cfg.ContentStore.SecretHeader,
		HTTPClient:      &http.Client{Timeout: n.cfg.ContentStore.Timeout},
		Cache:           n.store,
		Metrics:         cas.NewMetrics(n.metrics),
	})
}

// signer returns signer of the configured wallet, nil if there is none.
func (n *node) signer() (*sessionkey.WalletSigner, error) {
	if n.cfg.Wallet.WIF == "" {
		return nil, nil
	}
	key, err := keys.NewPrivateKeyFromWIF(n.cfg.Wallet.WIF)
	if err != nil {
		return nil, fmt.Errorf("decode wallet WIF: %w", err)
	}
	return sessionkey.NewWalletSigner(key), nil
}

func (n *node) deriver() (*sessionkey.Deriver, error) {
	return sessionkey.New(sessionkey.Prm{
		Logger: n.log,
		Cache:  n.store,
	})
}

// writeMetrics stores collected metrics in the Prometheus text format if
// requested.
func (n *node) writeMetrics(c *cli.Context) error {
	p := c.String("metrics")
	if p == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(p, n.metrics); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func parseJobID(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errors.New("missing job ID")
	}
	id, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid job ID %q: %w", s, err)
	}
	return id, nil
}

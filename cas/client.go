/*
Package cas provides access to the off-chain content store.

Contents are addressed by sha2-256 digests stored on chain, the store and
its gateway use CIDv0 for the same digests. Blobs are base64-encoded
envelopes (see package envelope).
*/
package cas

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nspcc-dev/jobmarket/cache"
	"github.com/nspcc-dev/jobmarket/envelope"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
)

// Placeholder is returned by SafeFetchContent instead of contents which
// can't be fetched or opened.
const Placeholder = "<encrypted message>"

const (
	defaultTimeout      = 30 * time.Second
	defaultSecretHeader = "X-Secret"
	maxErrorBody        = 4 << 10
)

// Prm groups parameters of New.
type Prm struct {
	// Logger is used for debug messages. Nil means no logging.
	Logger *zap.Logger
	// UploadEndpoint is the URL contents are POSTed to.
	UploadEndpoint string
	// GatewayEndpoint is the base URL of the gateway serving /ipfs/<cid>.
	GatewayEndpoint string
	// Secret is sent in SecretHeader on upload if set.
	Secret       string
	SecretHeader string
	// HTTPClient is used for all requests. Nil means client with default
	// timeout.
	HTTPClient *http.Client
	// Cache stores fetched blobs. Nil disables caching.
	Cache cache.Store
	// Metrics are optional.
	Metrics *Metrics
}

// Client publishes and fetches contents.
type Client struct {
	log     *zap.Logger
	upload  string
	gateway string
	secret  string
	header  string
	http    *http.Client
	cache   cache.Store
	metrics *Metrics
}

// Ref is a reference of the published content.
type Ref struct {
	Hash util.Uint256
	CID  string
}

type uploadRequest struct {
	DataB64 string `json:"dataB64"`
}

type uploadResponse struct {
	Hash string `json:"hash"`
	CID  string `json:"cid"`
}

// New creates Client.
func New(prm Prm) (*Client, error) {
	if prm.GatewayEndpoint == "" {
		return nil, errors.New("missing gateway endpoint")
	}
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.HTTPClient == nil {
		prm.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if prm.SecretHeader == "" {
		prm.SecretHeader = defaultSecretHeader
	}

	return &Client{
		log:     prm.Logger,
		upload:  prm.UploadEndpoint,
		gateway: strings.TrimSuffix(prm.GatewayEndpoint, "/"),
		secret:  prm.Secret,
		header:  prm.SecretHeader,
		http:    prm.HTTPClient,
		cache:   prm.Cache,
		metrics: prm.Metrics,
	}, nil
}

// Publish uploads the blob and returns its reference.
func (c *Client) Publish(ctx context.Context, data []byte) (Ref, error) {
	ref, err := c.publish(ctx, data)
	if err != nil {
		c.metrics.failed(opPublish)
	}
	return ref, err
}

func (c *Client) publish(ctx context.Context, data []byte) (Ref, error) {
	if c.upload == "" {
		return Ref{}, errors.New("missing upload endpoint")
	}

	body, err := json.Marshal(uploadRequest{DataB64: base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		return Ref{}, fmt.Errorf("marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.upload, bytes.NewReader(body))
	if err != nil {
		return Ref{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(c.header, c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Ref{}, fmt.Errorf("upload content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Ref{}, &PublishError{Status: resp.StatusCode, Body: string(msg)}
	}

	var res uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Ref{}, fmt.Errorf("decode upload response: %w", err)
	}

	h, err := ParseHash(res.Hash)
	if err != nil {
		return Ref{}, fmt.Errorf("upload response: %w", err)
	}
	cid := HashToCID(h)
	if res.CID != "" && res.CID != cid {
		return Ref{}, fmt.Errorf("upload response: %w: %s does not match hash %s", ErrInvalidCID, res.CID, res.Hash)
	}

	c.log.Debug("content published", zap.String("cid", cid))

	return Ref{Hash: h, CID: cid}, nil
}

// PublishContent seals the message with the session key (nil key means
// plaintext) and uploads it.
func (c *Client) PublishContent(ctx context.Context, msg []byte, key []byte) (Ref, error) {
	data, err := envelope.Seal(msg, key)
	if err != nil {
		return Ref{}, fmt.Errorf("seal content: %w", err)
	}
	return c.Publish(ctx, data)
}

// Fetch returns raw base64 blob referenced by CID or hex hash.
func (c *Client) Fetch(ctx context.Context, ref string) (string, error) {
	h, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	res, err := c.FetchHash(ctx, h)
	if err != nil {
		c.metrics.failed(opFetch)
	}
	return res, err
}

// FetchHash is Fetch for already parsed reference.
func (c *Client) FetchHash(ctx context.Context, h util.Uint256) (string, error) {
	cid := HashToCID(h)

	if c.cache != nil {
		v, err := c.cache.Get(ctx, cache.ContentKey(cid))
		if err == nil {
			c.metrics.fetched(sourceCache)
			return string(v), nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			c.log.Warn("content cache failure", zap.String("cid", cid), zap.Error(err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gateway+"/ipfs/"+cid, nil)
	if err != nil {
		return "", fmt.Errorf("create fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", cid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &FetchError{CID: cid, Status: resp.StatusCode, Body: string(msg)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", cid, err)
	}
	c.metrics.fetched(sourceGateway)

	if c.cache != nil {
		if err := c.cache.Set(ctx, cache.ContentKey(cid), body); err != nil {
			c.log.Warn("failed to cache content", zap.String("cid", cid), zap.Error(err))
		}
	}

	return string(body), nil
}

// FetchContent fetches the blob and opens the envelope with the session
// key.
func (c *Client) FetchContent(ctx context.Context, h util.Uint256, key []byte) ([]byte, error) {
	blob, err := c.FetchHash(ctx, h)
	if err != nil {
		c.metrics.failed(opFetch)
		return nil, err
	}

	res, err := OpenBlob(blob, key)
	if err != nil {
		c.metrics.failed(opOpen)
		return nil, fmt.Errorf("open %s: %w", HashToCID(h), err)
	}
	return res, nil
}

// SafeFetchContent is FetchContent returning Placeholder on any failure.
func (c *Client) SafeFetchContent(ctx context.Context, h util.Uint256, key []byte) string {
	res, err := c.FetchContent(ctx, h, key)
	if err != nil {
		c.log.Debug("content is unavailable", zap.String("hash", h.StringBE()), zap.Error(err))
		return Placeholder
	}
	return string(res)
}

// OpenBlob decodes base64 blob and opens the envelope.
func OpenBlob(blob string, key []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return envelope.Open(data, key)
}

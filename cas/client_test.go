package cas

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nspcc-dev/jobmarket/cache"
	"github.com/nspcc-dev/jobmarket/envelope"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "s3cr3t"

// testStore is an in-memory content store with upload endpoint at /upload
// and gateway at /ipfs/.
type testStore struct {
	mtx   sync.Mutex
	blobs map[string]string
	gets  atomic.Int32
}

func (s *testStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/upload":
		if r.Header.Get("X-Secret") != testSecret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req uploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.DataB64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h := hash.Sha256(data)
		cid := HashToCID(h)
		s.blobs[cid] = req.DataB64
		_ = json.NewEncoder(w).Encode(uploadResponse{Hash: "0x" + h.StringBE(), CID: cid})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/ipfs/"):
		s.gets.Add(1)
		blob, ok := s.blobs[strings.TrimPrefix(r.URL.Path, "/ipfs/")]
		if !ok {
			http.Error(w, "no link named", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(blob))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, secret string) (*Client, *testStore, *Metrics) {
	store := &testStore{blobs: make(map[string]string)}
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	mem, err := cache.NewMemory(16)
	require.NoError(t, err)

	m := NewMetrics(prometheus.NewRegistry())
	c, err := New(Prm{
		Logger:          zaptest.NewLogger(t),
		UploadEndpoint:  srv.URL + "/upload",
		GatewayEndpoint: srv.URL + "/",
		Secret:          secret,
		HTTPClient:      srv.Client(),
		Cache:           mem,
		Metrics:         m,
	})
	require.NoError(t, err)
	return c, store, m
}

func TestPublishFetch(t *testing.T) {
	ctx := context.Background()
	c, store, m := newTestClient(t, testSecret)
	key := bytes.Repeat([]byte{7}, envelope.KeySize)

	ref, err := c.PublishContent(ctx, []byte("job description"), key)
	require.NoError(t, err)
	require.Equal(t, HashToCID(ref.Hash), ref.CID)

	res, err := c.FetchContent(ctx, ref.Hash, key)
	require.NoError(t, err)
	require.Equal(t, "job description", string(res))

	// cached by CID
	blob, err := c.Fetch(ctx, "0x"+ref.Hash.StringBE())
	require.NoError(t, err)
	raw, err := OpenBlob(blob, key)
	require.NoError(t, err)
	require.Equal(t, "job description", string(raw))
	require.EqualValues(t, 1, store.gets.Load())
	require.EqualValues(t, 1, testutil.ToFloat64(m.fetches.WithLabelValues(sourceGateway)))
	require.EqualValues(t, 1, testutil.ToFloat64(m.fetches.WithLabelValues(sourceCache)))

	_, err = c.FetchContent(ctx, ref.Hash, nil)
	require.ErrorIs(t, err, envelope.ErrMissingSessionKey)

	_, err = c.FetchContent(ctx, ref.Hash, bytes.Repeat([]byte{8}, envelope.KeySize))
	require.ErrorIs(t, err, envelope.ErrDecryption)
	require.EqualValues(t, 2, testutil.ToFloat64(m.failures.WithLabelValues(opOpen)))

	require.Equal(t, "job description", c.SafeFetchContent(ctx, ref.Hash, key))
	require.Equal(t, Placeholder, c.SafeFetchContent(ctx, ref.Hash, nil))

	plain, err := c.PublishContent(ctx, []byte("public"), nil)
	require.NoError(t, err)
	require.Equal(t, "public", c.SafeFetchContent(ctx, plain.Hash, key))
}

func TestFetchErrors(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestClient(t, testSecret)

	_, err := c.Fetch(ctx, testCID)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusNotFound, fe.Status)
	require.Contains(t, fe.Body, "no link named")
	require.Equal(t, testCID, fe.CID)

	_, err = c.Fetch(ctx, "not a ref")
	require.ErrorIs(t, err, ErrInvalidHash)

	h, err := ParseHash(testHash)
	require.NoError(t, err)
	require.Equal(t, Placeholder, c.SafeFetchContent(ctx, h, nil))
}

func TestPublishErrors(t *testing.T) {
	ctx := context.Background()
	c, _, m := newTestClient(t, "wrong")

	_, err := c.Publish(ctx, []byte("data"))
	var pe *PublishError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, http.StatusForbidden, pe.Status)
	require.Contains(t, pe.Body, "forbidden")
	require.EqualValues(t, 1, testutil.ToFloat64(m.failures.WithLabelValues(opPublish)))

	_, err = c.PublishContent(ctx, nil, nil)
	require.ErrorIs(t, err, envelope.ErrEmptyData)
}

package sessionkey

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/cache"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingSigner struct {
	Signer
	delay time.Duration
	calls atomic.Int32
}

func (s *countingSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return s.Signer.SignMessage(ctx, msg)
}

type failingSigner struct{}

func (failingSigner) Address(context.Context) (util.Uint160, error) {
	return util.Uint160{1}, nil
}

func (failingSigner) SignMessage(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("user rejected")
}

func newSigner(t *testing.T) *countingSigner {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return &countingSigner{Signer: NewWalletSigner(k)}
}

func newDeriver(t *testing.T, store cache.Store) *Deriver {
	d, err := New(Prm{Logger: zaptest.NewLogger(t), Cache: store})
	require.NoError(t, err)
	return d
}

func TestSessionKeyCommutative(t *testing.T) {
	ctx := context.Background()
	a, b := newSigner(t), newSigner(t)

	// each party uses its own deriver
	da, db := newDeriver(t, nil), newDeriver(t, nil)

	pubA, err := da.EncryptionPublicKey(ctx, a)
	require.NoError(t, err)
	require.Len(t, pubA, PublicKeySize)
	pubB, err := db.EncryptionPublicKey(ctx, b)
	require.NoError(t, err)

	job := uint256.NewInt(42)
	ka, err := da.SessionKey(ctx, a, pubB, job)
	require.NoError(t, err)
	kb, err := db.SessionKey(ctx, b, pubA, job)
	require.NoError(t, err)
	require.Len(t, ka, 32)
	require.Equal(t, ka, kb)

	other, err := da.SessionKey(ctx, a, pubB, uint256.NewInt(43))
	require.NoError(t, err)
	require.NotEqual(t, ka, other)
}

func TestEncryptionKeyDeterministic(t *testing.T) {
	ctx := context.Background()
	s := newSigner(t)

	k1, err := newDeriver(t, nil).EncryptionPublicKey(ctx, s)
	require.NoError(t, err)
	k2, err := newDeriver(t, nil).EncryptionPublicKey(ctx, s)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}

func TestEncryptionKeyCached(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewMemory(10)
	require.NoError(t, err)

	s := newSigner(t)
	s.delay = 10 * time.Millisecond
	d := newDeriver(t, store)

	var wg sync.WaitGroup
	pubs := make([][]byte, 10)
	errs := make([]error, len(pubs))
	for i := range pubs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pubs[i], errs[i] = d.EncryptionPublicKey(ctx, s)
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, s.calls.Load())
	for i := range pubs {
		require.NoError(t, errs[i])
		require.Equal(t, pubs[0], pubs[i])
	}

	// restored from the persistent cache by a new deriver
	pub, err := newDeriver(t, store).EncryptionPublicKey(ctx, s)
	require.NoError(t, err)
	require.Equal(t, pubs[0], pub)
	require.EqualValues(t, 1, s.calls.Load())
}

func TestSessionKeyErrors(t *testing.T) {
	ctx := context.Background()
	d := newDeriver(t, nil)
	s := newSigner(t)
	job := uint256.NewInt(1)

	pub, err := d.EncryptionPublicKey(ctx, newSigner(t))
	require.NoError(t, err)

	_, err = d.SessionKey(ctx, s, pub[1:], job)
	require.ErrorIs(t, err, ErrInvalidPublicKey)

	bad := append([]byte{0x05}, pub[1:]...)
	_, err = d.SessionKey(ctx, s, bad, job)
	require.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = d.SessionKey(ctx, failingSigner{}, pub, job)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidPublicKey)
}

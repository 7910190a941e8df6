package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/sessionkey"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

type pubKeys map[util.Uint160][]byte

func (p pubKeys) PublicKey(owner util.Uint160) ([]byte, error) {
	pub, ok := p[owner]
	if !ok {
		return nil, errors.New("key is not published")
	}
	return pub, nil
}

func TestWallet(t *testing.T) {
	ctx := context.Background()
	jobID := uint256.NewInt(3)

	d, err := sessionkey.New(sessionkey.Prm{})
	require.NoError(t, err)

	newAccount := func() (sessionkey.Signer, util.Uint160) {
		k, err := keys.NewPrivateKey()
		require.NoError(t, err)
		return sessionkey.NewWalletSigner(k), k.GetScriptHash()
	}
	sa, a := newAccount()
	sb, b := newAccount()
	_, c := newAccount()

	published := make(pubKeys)
	published[a], err = d.EncryptionPublicKey(ctx, sa)
	require.NoError(t, err)
	published[b], err = d.EncryptionPublicKey(ctx, sb)
	require.NoError(t, err)

	wa, wb := NewWallet(d, sa, published), NewWallet(d, sb, published)

	ka, err := wa.SessionKey(ctx, a, b, jobID)
	require.NoError(t, err)
	require.Len(t, ka, 32)
	kb, err := wb.SessionKey(ctx, a, b, jobID)
	require.NoError(t, err)
	require.Equal(t, ka, kb)

	kb, err = wb.SessionKey(ctx, b, a, jobID)
	require.NoError(t, err)
	require.Equal(t, ka, kb)

	key, err := wa.SessionKey(ctx, a, util.Uint160{}, jobID)
	require.NoError(t, err)
	require.Nil(t, key)

	_, err = wa.SessionKey(ctx, b, c, jobID)
	require.ErrorIs(t, err, ErrNotParticipant)

	_, err = wa.SessionKey(ctx, a, c, jobID)
	require.Error(t, err)
}

func TestStaticKeys(t *testing.T) {
	a, b := util.Uint160{1}, util.Uint160{2}
	s := StaticKeys{NewPair(b, a): []byte{1}}

	k, err := s.SessionKey(context.Background(), a, b, uint256.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, k)

	k, err = s.SessionKey(context.Background(), a, util.Uint160{3}, uint256.NewInt(0))
	require.NoError(t, err)
	require.Nil(t, k)
}

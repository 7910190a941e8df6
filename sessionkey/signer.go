package sessionkey

import (
	"context"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Signer is a wallet able to sign arbitrary messages. Signing may require
// user interaction, so Deriver requests it once per account.
type Signer interface {
	// Address returns account of the wallet.
	Address(ctx context.Context) (util.Uint160, error)
	// SignMessage signs the message. Signatures of the same message must be
	// the same.
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// WalletSigner is a Signer over the local private key. Neo signatures are
// deterministic (RFC 6979).
type WalletSigner struct {
	key *keys.PrivateKey
}

// NewWalletSigner returns Signer for the given key.
func NewWalletSigner(key *keys.PrivateKey) *WalletSigner {
	return &WalletSigner{key: key}
}

// Address implements Signer.
func (w *WalletSigner) Address(context.Context) (util.Uint160, error) {
	return w.key.GetScriptHash(), nil
}

// SignMessage implements Signer.
func (w *WalletSigner) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	return w.key.Sign(msg), nil
}

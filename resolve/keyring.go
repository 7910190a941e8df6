package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/sessionkey"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ErrNotParticipant is returned by KeyRing when the local account is
// neither sender nor recipient of the content.
var ErrNotParticipant = errors.New("account is not a participant")

// KeyRing provides session keys for contents sent between two accounts.
// Nil key with nil error means the content is not encrypted.
type KeyRing interface {
	SessionKey(ctx context.Context, sender, recipient util.Uint160, jobID *uint256.Int) ([]byte, error)
}

// Pair is an unordered pair of accounts.
type Pair [2]util.Uint160

// NewPair returns normalized Pair.
func NewPair(a, b util.Uint160) Pair {
	if b.Less(a) {
		a, b = b, a
	}
	return Pair{a, b}
}

// StaticKeys is a KeyRing with known keys. Pairs which are not in the map
// get nil key.
type StaticKeys map[Pair][]byte

// SessionKey implements KeyRing.
func (s StaticKeys) SessionKey(_ context.Context, sender, recipient util.Uint160, _ *uint256.Int) ([]byte, error) {
	return s[NewPair(sender, recipient)], nil
}

// PublicKeySource returns published encryption keys of the accounts.
type PublicKeySource interface {
	PublicKey(owner util.Uint160) ([]byte, error)
}

// Wallet is a KeyRing of the local account deriving session keys with its
// counterparties. Contents sent to the zero address are public.
type Wallet struct {
	deriver *sessionkey.Deriver
	signer  sessionkey.Signer
	keys    PublicKeySource

	mtx     sync.Mutex
	account *util.Uint160
	pubs    map[util.Uint160][]byte
}

// NewWallet returns KeyRing of the signer.
func NewWallet(d *sessionkey.Deriver, s sessionkey.Signer, keys PublicKeySource) *Wallet {
	return &Wallet{
		deriver: d,
		signer:  s,
		keys:    keys,
		pubs:    make(map[util.Uint160][]byte),
	}
}

// SessionKey implements KeyRing.
func (w *Wallet) SessionKey(ctx context.Context, sender, recipient util.Uint160, jobID *uint256.Int) ([]byte, error) {
	if sender.Equals(util.Uint160{}) || recipient.Equals(util.Uint160{}) {
		return nil, nil
	}

	acc, err := w.address(ctx)
	if err != nil {
		return nil, err
	}

	var counterparty util.Uint160
	switch acc {
	case sender:
		counterparty = recipient
	case recipient:
		counterparty = sender
	default:
		return nil, ErrNotParticipant
	}

	pub, err := w.publicKey(counterparty)
	if err != nil {
		return nil, err
	}

	return w.deriver.SessionKey(ctx, w.signer, pub, jobID)
}

func (w *Wallet) address(ctx context.Context) (util.Uint160, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.account == nil {
		acc, err := w.signer.Address(ctx)
		if err != nil {
			return util.Uint160{}, fmt.Errorf("get wallet address: %w", err)
		}
		w.account = &acc
	}
	return *w.account, nil
}

func (w *Wallet) publicKey(owner util.Uint160) ([]byte, error) {
	w.mtx.Lock()
	pub, ok := w.pubs[owner]
	w.mtx.Unlock()
	if ok {
		return pub, nil
	}

	pub, err := w.keys.PublicKey(owner)
	if err != nil {
		return nil, fmt.Errorf("get public key of %s: %w", owner.StringLE(), err)
	}

	w.mtx.Lock()
	w.pubs[owner] = pub
	w.mtx.Unlock()
	return pub, nil
}

/*
Package sessionkey derives symmetric keys shared by two marketplace
participants.

Every account has an encryption key pair obtained by hashing the wallet
signature of a fixed message, so the wallet is asked to sign only once and
the key can be restored from the wallet at any moment. Public parts of the
encryption keys are published, and two parties compute the same session key
for a job from their own private key and the public key of the counterparty
(ECDH over P-256).
*/
package sessionkey

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/cache"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// KeyMessage is the message signed by the wallet to derive its encryption
// key. Changing it changes keys of all accounts.
const KeyMessage = "Sign this message to derive your job marketplace encryption key. " +
	"It costs nothing and does not give access to your funds."

// PublicKeySize is the size of compressed public key.
const PublicKeySize = 33

// sessionDomain separates session keys from other hashes of the same data.
var sessionDomain = []byte("jobmarket-session-v1")

// ErrInvalidPublicKey is returned for counterparty keys which are not a
// compressed P-256 point.
var ErrInvalidPublicKey = errors.New("invalid public key")

const defaultMemoSize = 1024

// Prm groups parameters of New.
type Prm struct {
	// Logger is used for debug messages. Nil means no logging.
	Logger *zap.Logger
	// Cache persists hashed wallet signatures. Nil means process-local
	// caching only.
	Cache cache.Store
	// MemoSize limits the number of memorized session keys. Zero means
	// default size.
	MemoSize int
}

// Deriver computes encryption and session keys. It's safe for concurrent
// use.
type Deriver struct {
	log   *zap.Logger
	store cache.Store

	signing  singleflight.Group
	accounts *lru.Cache // address -> *ecdh.PrivateKey
	sessions *lru.Cache // sessionMemoKey -> []byte
}

type sessionMemoKey struct {
	account      string
	jobID        uint256.Int
	counterparty string
}

// New creates Deriver.
func New(prm Prm) (*Deriver, error) {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.MemoSize <= 0 {
		prm.MemoSize = defaultMemoSize
	}

	accounts, err := lru.New(prm.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("create account cache: %w", err)
	}
	sessions, err := lru.New(prm.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	return &Deriver{
		log:      prm.Logger,
		store:    prm.Cache,
		accounts: accounts,
		sessions: sessions,
	}, nil
}

// EncryptionKey returns the encryption key of the signer's account.
// Concurrent calls for the same account share one signature request.
func (d *Deriver) EncryptionKey(ctx context.Context, s Signer) (*ecdh.PrivateKey, error) {
	acc, err := s.Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("get signer address: %w", err)
	}
	addr := address.Uint160ToString(acc)

	if v, ok := d.accounts.Get(addr); ok {
		return v.(*ecdh.PrivateKey), nil
	}

	v, err, _ := d.signing.Do(addr, func() (any, error) {
		if v, ok := d.accounts.Get(addr); ok {
			return v, nil
		}

		seed, err := d.hashedSignature(ctx, s, addr)
		if err != nil {
			return nil, err
		}

		key, err := ecdh.P256().NewPrivateKey(seed)
		if err != nil {
			return nil, fmt.Errorf("hashed signature of %s is not a valid key: %w", addr, err)
		}

		d.accounts.Add(addr, key)
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ecdh.PrivateKey), nil
}

func (d *Deriver) hashedSignature(ctx context.Context, s Signer, addr string) ([]byte, error) {
	if d.store != nil {
		v, err := d.store.Get(ctx, cache.SignatureKey(addr))
		switch {
		case err == nil:
			seed, err := hex.DecodeString(string(v))
			if err == nil && len(seed) == 32 {
				return seed, nil
			}
			d.log.Warn("invalid cached signature hash, requesting new signature",
				zap.String("account", addr))
		case !errors.Is(err, cache.ErrNotFound):
			return nil, fmt.Errorf("read cached signature hash: %w", err)
		}
	}

	d.log.Debug("requesting wallet signature", zap.String("account", addr))

	sig, err := s.SignMessage(ctx, []byte(KeyMessage))
	if err != nil {
		return nil, fmt.Errorf("sign key message: %w", err)
	}

	seed := hash.DoubleSha256(sig).BytesBE()

	if d.store != nil {
		err = d.store.Set(ctx, cache.SignatureKey(addr), []byte(hex.EncodeToString(seed)))
		if err != nil {
			d.log.Warn("failed to cache signature hash",
				zap.String("account", addr), zap.Error(err))
		}
	}

	return seed, nil
}

// EncryptionPublicKey returns compressed public key of the signer's
// encryption key. This is the key counterparties pass to SessionKey.
func (d *Deriver) EncryptionPublicKey(ctx context.Context, s Signer) ([]byte, error) {
	key, err := d.EncryptionKey(ctx, s)
	if err != nil {
		return nil, err
	}

	pub, err := keys.NewPublicKeyFromBytes(key.PublicKey().Bytes(), elliptic.P256())
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return pub.Bytes(), nil
}

// SessionKey returns the symmetric key for the job shared between signer
// and the owner of counterparty public key. The result is the same for
// both sides.
func (d *Deriver) SessionKey(ctx context.Context, s Signer, counterparty []byte, jobID *uint256.Int) ([]byte, error) {
	pub, err := ParsePublicKey(counterparty)
	if err != nil {
		return nil, err
	}

	key, err := d.EncryptionKey(ctx, s)
	if err != nil {
		return nil, err
	}

	memo := sessionMemoKey{
		account:      hex.EncodeToString(key.PublicKey().Bytes()),
		jobID:        *jobID,
		counterparty: hex.EncodeToString(counterparty),
	}
	if v, ok := d.sessions.Get(memo); ok {
		return v.([]byte), nil
	}

	shared, err := key.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("compute shared secret: %w", err)
	}

	res := deriveSessionKey(shared, jobID)
	d.sessions.Add(memo, res)
	return res, nil
}

func deriveSessionKey(shared []byte, jobID *uint256.Int) []byte {
	id := jobID.Bytes32()

	buf := make([]byte, 0, len(sessionDomain)+len(shared)+len(id))
	buf = append(buf, sessionDomain...)
	buf = append(buf, shared...)
	buf = append(buf, id[:]...)

	salted := hash.Sha256(buf)
	return hash.DoubleSha256(salted.BytesBE()).BytesBE()
}

// ParsePublicKey decodes compressed P-256 public key.
func ParsePublicKey(b []byte) (*ecdh.PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeySize, len(b))
	}

	pub, err := keys.NewPublicKeyFromBytes(b, elliptic.P256())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	res, err := (*ecdsa.PublicKey)(pub).ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return res, nil
}

package cas

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// CIDLength is the length of the base58-encoded CIDv0.
const CIDLength = 46

// multihash prefix of sha2-256 digest of 32 bytes.
var multihashPrefix = []byte{0x12, 0x20}

var (
	// ErrInvalidCID is returned for strings which are not CIDv0.
	ErrInvalidCID = errors.New("invalid CID")
	// ErrInvalidHash is returned for malformed content hashes.
	ErrInvalidHash = errors.New("invalid hash")
)

// HashToCID returns CIDv0 of the content with the given sha2-256 digest.
func HashToCID(h util.Uint256) string {
	buf := make([]byte, 0, len(multihashPrefix)+util.Uint256Size)
	buf = append(buf, multihashPrefix...)
	buf = append(buf, h.BytesBE()...)
	return base58.Encode(buf)
}

// CIDToHash returns content digest of the CIDv0.
func CIDToHash(cid string) (util.Uint256, error) {
	if len(cid) != CIDLength || !strings.HasPrefix(cid, "Qm") {
		return util.Uint256{}, fmt.Errorf("%w: %q is not a %d-character string starting with Qm", ErrInvalidCID, cid, CIDLength)
	}

	raw, err := base58.Decode(cid)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	if len(raw) != len(multihashPrefix)+util.Uint256Size ||
		raw[0] != multihashPrefix[0] || raw[1] != multihashPrefix[1] {
		return util.Uint256{}, fmt.Errorf("%w: unexpected multihash", ErrInvalidCID)
	}

	res, err := util.Uint256DecodeBytesBE(raw[len(multihashPrefix):])
	if err != nil {
		return util.Uint256{}, fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	return res, nil
}

// ParseHash decodes hex-encoded 32-byte digest with optional 0x prefix.
func ParseHash(s string) (util.Uint256, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	res, err := util.Uint256DecodeStringBE(s)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return res, nil
}

// ParseRef accepts either CIDv0 or hex-encoded digest and returns the
// digest of the content.
func ParseRef(ref string) (util.Uint256, error) {
	if strings.HasPrefix(ref, "Qm") {
		return CIDToHash(ref)
	}
	return ParseHash(ref)
}

package event

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

const (
	hashLen    = util.Uint256Size
	addressLen = util.Uint160Size
)

var (
	// ErrTruncated is returned when the payload ends before the field being
	// read is complete.
	ErrTruncated = errors.New("truncated payload")
	// ErrMalformed is returned when the payload has a length that is not
	// allowed by the layout.
	ErrMalformed = errors.New("malformed payload")
)

// DecodeError describes a failure to decode a payload of a particular event.
type DecodeError struct {
	// Type of the event being decoded.
	Type Type
	// Field which failed to be decoded.
	Field string
	// Offset of the field within the payload.
	Offset int
	// Err is ErrTruncated or ErrMalformed.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s event: field %s at offset %d: %v", e.Type, e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// reader is a forward-only cursor over the payload. The first failure is
// sticky: all subsequent reads return zero values and err stays the same.
type reader struct {
	typ Type
	b   []byte
	off int
	err error
}

func newReader(typ Type, b []byte) *reader {
	return &reader{typ: typ, b: b}
}

func (r *reader) fail(field string, err error) {
	if r.err == nil {
		r.err = &DecodeError{Type: r.typ, Field: field, Offset: r.off, Err: err}
	}
}

func (r *reader) take(field string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.b)-r.off < n {
		r.fail(field, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(r.b)-r.off))
		return nil
	}
	res := r.b[r.off : r.off+n]
	r.off += n
	return res
}

func (r *reader) rest() []byte {
	if r.err != nil {
		return nil
	}
	res := r.b[r.off:]
	r.off = len(r.b)
	return res
}

func (r *reader) u8(field string) uint8 {
	b := r.take(field, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16(field string) uint16 {
	b := r.take(field, 2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32(field string) uint32 {
	b := r.take(field, 4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u256(field string) (res uint256.Int) {
	b := r.take(field, 32)
	if b != nil {
		res.SetBytes32(b)
	}
	return
}

func (r *reader) flag(field string) bool {
	return r.u8(field) == 1
}

func (r *reader) digest(field string) util.Uint256 {
	b := r.take(field, hashLen)
	if b == nil {
		return util.Uint256{}
	}
	res, _ := util.Uint256DecodeBytesBE(b) // length checked by take
	return res
}

func (r *reader) addr(field string) util.Uint160 {
	b := r.take(field, addressLen)
	if b == nil {
		return util.Uint160{}
	}
	res, _ := util.Uint160DecodeBytesBE(b) // length checked by take
	return res
}

func (r *reader) raw(field string) []byte {
	n := r.u8(field)
	b := r.take(field, int(n))
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func (r *reader) str(field string) string {
	n := r.u8(field)
	return toString(r.take(field, int(n)))
}

func (r *reader) strs(field string) []string {
	n := int(r.u8(field))
	if r.err != nil || n == 0 {
		return []string{}
	}
	res := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		res = append(res, r.str(field))
	}
	return res
}

func (r *reader) addrs(field string) []util.Uint160 {
	n := int(r.u8(field))
	if r.err != nil || n == 0 {
		return []util.Uint160{}
	}
	res := make([]util.Uint160, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		res = append(res, r.addr(field))
	}
	return res
}

// toString decodes UTF-8 replacing invalid sequences with U+FFFD.
func toString(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

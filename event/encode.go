package event

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ErrTooLong is returned by Encoder when a length-prefixed value does not fit
// into the 1-byte prefix.
var ErrTooLong = errors.New("value too long")

// Encoder produces payloads in the layouts understood by Decoder. The
// contract is the authoritative encoder, Encoder exists for fixtures and
// tooling. Zero value uses LayoutAllowedWorkers.
type Encoder struct {
	CreatedLayout CreatedLayout
}

// Encode encodes details into the binary payload of the corresponding event.
func (e Encoder) Encode(d Details) ([]byte, error) {
	var w writer

	switch v := d.(type) {
	case *CreatedDetails:
		w.str("title", v.Title)
		w.digest(v.ContentHash)
		w.flag(v.MultipleApplicants)
		w.strs("tags", v.Tags)
		w.addr(v.Token)
		w.u256(&v.Amount)
		w.u32(v.MaxTime)
		w.str("deliveryMethod", v.DeliveryMethod)
		w.addr(v.Arbitrator)
		switch e.CreatedLayout {
		case LayoutAllowedWorkers:
			w.addrs("allowedWorkers", v.AllowedWorkers)
		case LayoutWhitelistFlag:
			w.flag(v.WhitelistWorkers)
		default:
			return nil, fmt.Errorf("unsupported Created event layout %s", e.CreatedLayout)
		}
	case *UpdatedDetails:
		w.str("title", v.Title)
		w.digest(v.ContentHash)
		w.strs("tags", v.Tags)
		w.u256(&v.Amount)
		w.u32(v.MaxTime)
		w.addr(v.Arbitrator)
		w.flag(v.WhitelistWorkers)
	case *SignedDetails:
		w.u16(v.Revision)
		w.buf = append(w.buf, v.Signature...)
	case *RatedDetails:
		w.buf = append(w.buf, v.Rating)
		w.buf = append(w.buf, v.Review...)
	case *DisputedDetails:
		w.raw("sessionKey", v.SessionKey)
		w.raw("content", v.Content)
	case *ArbitratedDetails:
		w.u16(v.CreatorShare)
		w.u256(&v.CreatorAmount)
		w.u16(v.WorkerShare)
		w.u256(&v.WorkerAmount)
		w.digest(v.ReasonHash)
		w.addr(v.WorkerAddress)
	case *MessageDetails:
		w.digest(v.ContentHash)
	default:
		return nil, fmt.Errorf("unsupported details type %T", d)
	}

	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

type writer struct {
	buf []byte
	err error
}

func (w *writer) length(field string, n int) {
	if n > math.MaxUint8 && w.err == nil {
		w.err = fmt.Errorf("field %s: %w: %d > %d", field, ErrTooLong, n, math.MaxUint8)
	}
	w.buf = append(w.buf, byte(n))
}

func (w *writer) str(field, s string) {
	w.length(field, len(s))
	w.buf = append(w.buf, s...)
}

func (w *writer) strs(field string, ss []string) {
	w.length(field, len(ss))
	for i := range ss {
		w.str(field, ss[i])
	}
}

func (w *writer) raw(field string, b []byte) {
	w.length(field, len(b))
	w.buf = append(w.buf, b...)
}

func (w *writer) addr(a util.Uint160) {
	w.buf = append(w.buf, a.BytesBE()...)
}

func (w *writer) addrs(field string, as []util.Uint160) {
	w.length(field, len(as))
	for i := range as {
		w.addr(as[i])
	}
}

func (w *writer) digest(h util.Uint256) {
	w.buf = append(w.buf, h.BytesBE()...)
}

func (w *writer) flag(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *writer) u16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) u256(v *uint256.Int) {
	b := v.Bytes32()
	w.buf = append(w.buf, b[:]...)
}

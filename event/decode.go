package event

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// CreatedLayout selects the binary layout of the Created event. The layout is
// not self-describing and depends on the version of the deployed contract.
type CreatedLayout uint8

const (
	// LayoutAllowedWorkers ends the Created payload with the address[] of
	// allowed workers; WhitelistWorkers is set when the list is non-empty.
	LayoutAllowedWorkers CreatedLayout = iota
	// LayoutWhitelistFlag ends the Created payload with the explicit
	// whitelistWorkers flag and carries no worker list.
	LayoutWhitelistFlag
)

// String implements fmt.Stringer.
func (l CreatedLayout) String() string {
	switch l {
	case LayoutAllowedWorkers:
		return "allowed-workers"
	case LayoutWhitelistFlag:
		return "whitelist-flag"
	default:
		return fmt.Sprintf("unknown#%d", uint8(l))
	}
}

// ParseCreatedLayout parses layout from its String representation.
func ParseCreatedLayout(s string) (CreatedLayout, error) {
	switch strings.ToLower(s) {
	case "", "allowed-workers":
		return LayoutAllowedWorkers, nil
	case "whitelist-flag":
		return LayoutWhitelistFlag, nil
	default:
		return 0, fmt.Errorf("unsupported Created event layout '%s'", s)
	}
}

// Decoder decodes event payloads. Zero value uses LayoutAllowedWorkers.
type Decoder struct {
	CreatedLayout CreatedLayout
}

// arbitratedLen is the size of the Arbitrated payload: two uint16 shares, two
// uint256 amounts, reason hash and worker address.
const arbitratedLen = 2 + 32 + 2 + 32 + hashLen + addressLen

// Decode decodes payload of the event of the given type. Types without a
// dedicated layout are decoded to nil Details and nil error.
func (d Decoder) Decode(typ Type, data []byte) (Details, error) {
	switch typ {
	case Created:
		return d.decodeCreated(data)
	case Updated:
		return decodeUpdated(data)
	case Signed:
		return decodeSigned(data)
	case Rated:
		return decodeRated(data)
	case Disputed:
		return decodeDisputed(data)
	case Arbitrated:
		return decodeArbitrated(data)
	case OwnerMessage, WorkerMessage:
		return decodeMessage(typ, data)
	default:
		return nil, nil
	}
}

func (d Decoder) decodeCreated(data []byte) (Details, error) {
	r := newReader(Created, data)
	res := &CreatedDetails{
		Title:              r.str("title"),
		ContentHash:        r.digest("contentHash"),
		MultipleApplicants: r.flag("multipleApplicants"),
		Tags:               r.strs("tags"),
		Token:              r.addr("token"),
		Amount:             r.u256("amount"),
		MaxTime:            r.u32("maxTime"),
		DeliveryMethod:     r.str("deliveryMethod"),
		Arbitrator:         r.addr("arbitrator"),
	}

	switch d.CreatedLayout {
	case LayoutAllowedWorkers:
		res.AllowedWorkers = r.addrs("allowedWorkers")
		res.WhitelistWorkers = len(res.AllowedWorkers) > 0
	case LayoutWhitelistFlag:
		res.WhitelistWorkers = r.flag("whitelistWorkers")
		res.AllowedWorkers = []util.Uint160{}
	default:
		return nil, fmt.Errorf("unsupported Created event layout %s", d.CreatedLayout)
	}

	if r.err != nil {
		return nil, r.err
	}
	return res, nil
}

func decodeUpdated(data []byte) (Details, error) {
	r := newReader(Updated, data)
	res := &UpdatedDetails{
		Title:            r.str("title"),
		ContentHash:      r.digest("contentHash"),
		Tags:             r.strs("tags"),
		Amount:           r.u256("amount"),
		MaxTime:          r.u32("maxTime"),
		Arbitrator:       r.addr("arbitrator"),
		WhitelistWorkers: r.flag("whitelistWorkers"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return res, nil
}

func decodeSigned(data []byte) (Details, error) {
	r := newReader(Signed, data)
	res := &SignedDetails{
		Revision:  r.u16("revision"),
		Signature: append([]byte{}, r.rest()...),
	}
	if r.err != nil {
		return nil, r.err
	}
	return res, nil
}

func decodeRated(data []byte) (Details, error) {
	r := newReader(Rated, data)
	res := &RatedDetails{
		Rating: r.u8("rating"),
		Review: toString(r.rest()),
	}
	if r.err != nil {
		return nil, r.err
	}
	return res, nil
}

func decodeDisputed(data []byte) (Details, error) {
	r := newReader(Disputed, data)
	res := &DisputedDetails{
		SessionKey: r.raw("sessionKey"),
		Content:    r.raw("content"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return res, nil
}

// decodeArbitrated reads fields at offsets 0, 2, 34, 36, 68 and 100. The
// worker address at offset 100 takes 20 bytes, so the payload is at least
// arbitratedLen (120) bytes long and a 101-byte payload is ErrTruncated.
func decodeArbitrated(data []byte) (Details, error) {
	if len(data) < arbitratedLen {
		return nil, &DecodeError{Type: Arbitrated, Field: "payload", Err: fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, arbitratedLen, len(data))}
	}
	r := newReader(Arbitrated, data)
	res := &ArbitratedDetails{
		CreatorShare:  r.u16("creatorShare"),
		CreatorAmount: r.u256("creatorAmount"),
		WorkerShare:   r.u16("workerShare"),
		WorkerAmount:  r.u256("workerAmount"),
		ReasonHash:    r.digest("reasonHash"),
		WorkerAddress: r.addr("workerAddress"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return res, nil
}

func decodeMessage(typ Type, data []byte) (Details, error) {
	h, err := decodeHash(typ, "contentHash", data)
	if err != nil {
		return nil, err
	}
	return &MessageDetails{Type: typ, ContentHash: h}, nil
}

// DecodeEscrowID decodes escrow identifier carried by the Taken and Paid
// events: a big-endian unsigned integer of at most 32 bytes. Empty data
// means zero.
func DecodeEscrowID(typ Type, data []byte) (uint256.Int, error) {
	var res uint256.Int
	if len(data) > 32 {
		return res, &DecodeError{Type: typ, Field: "escrowId", Err: fmt.Errorf("%w: %d bytes exceed uint256", ErrMalformed, len(data))}
	}
	res.SetBytes(data)
	return res, nil
}

// DecodeResultHash decodes result hash carried by the Delivered event.
func DecodeResultHash(data []byte) (util.Uint256, error) {
	return decodeHash(Delivered, "resultHash", data)
}

func decodeHash(typ Type, field string, data []byte) (util.Uint256, error) {
	if len(data) != hashLen {
		err := ErrMalformed
		if len(data) < hashLen {
			err = ErrTruncated
		}
		return util.Uint256{}, &DecodeError{Type: typ, Field: field, Err: fmt.Errorf("%w: expected %d bytes, got %d", err, hashLen, len(data))}
	}
	res, _ := util.Uint256DecodeBytesBE(data)
	return res, nil
}

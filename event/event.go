package event

import (
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// JobEvent is a single record of the job event log as it is stored on chain.
type JobEvent struct {
	// Type of the event.
	Type Type
	// Address of the account that caused the event.
	Address util.Uint160
	// Data is the raw type-specific payload.
	Data []byte
	// Timestamp is the ledger time of the event in seconds.
	Timestamp uint64
	// ID is the log-local sequence number assigned during replay.
	ID uint64
}

// Details is a decoded type-specific payload of the JobEvent. The set of
// implementations is closed: CreatedDetails, UpdatedDetails, SignedDetails,
// RatedDetails, DisputedDetails, ArbitratedDetails and MessageDetails.
type Details interface {
	// EventType returns type of the event the payload belongs to.
	EventType() Type
}

// CreatedDetails is a payload of the Created event.
type CreatedDetails struct {
	Title              string
	ContentHash        util.Uint256
	MultipleApplicants bool
	Tags               []string
	Token              util.Uint160
	Amount             uint256.Int
	MaxTime            uint32
	DeliveryMethod     string
	Arbitrator         util.Uint160
	WhitelistWorkers   bool
	// AllowedWorkers is empty for the LayoutWhitelistFlag layout.
	AllowedWorkers []util.Uint160

	// Content is the job description resolved by ContentHash, empty until
	// content resolution.
	Content string
}

// UpdatedDetails is a payload of the Updated event.
type UpdatedDetails struct {
	Title            string
	ContentHash      util.Uint256
	Tags             []string
	Amount           uint256.Int
	MaxTime          uint32
	Arbitrator       util.Uint160
	WhitelistWorkers bool

	// Content is the job description resolved by ContentHash.
	Content string
}

// SignedDetails is a payload of the Signed event.
type SignedDetails struct {
	Revision  uint16
	Signature []byte
}

// RatedDetails is a payload of the Rated event.
type RatedDetails struct {
	Rating uint8
	Review string
}

// DisputedDetails is a payload of the Disputed event. Both fields are
// encrypted for the arbitrator.
type DisputedDetails struct {
	SessionKey []byte
	Content    []byte

	// Decrypted fields, set by content resolution.
	DecryptedSessionKey string
	DecryptedContent    string
}

// ArbitratedDetails is a payload of the Arbitrated event.
type ArbitratedDetails struct {
	// CreatorShare is in basis points.
	CreatorShare  uint16
	CreatorAmount uint256.Int
	// WorkerShare is in basis points.
	WorkerShare   uint16
	WorkerAmount  uint256.Int
	ReasonHash    util.Uint256
	WorkerAddress util.Uint160

	// Reason is the arbitrator's reasoning resolved by ReasonHash.
	Reason string
}

// MessageDetails is a payload of the OwnerMessage and WorkerMessage events.
type MessageDetails struct {
	// Type is either OwnerMessage or WorkerMessage.
	Type        Type
	ContentHash util.Uint256

	// Content is the message text resolved by ContentHash.
	Content string
}

// EventType implements Details.
func (*CreatedDetails) EventType() Type { return Created }

// EventType implements Details.
func (*UpdatedDetails) EventType() Type { return Updated }

// EventType implements Details.
func (*SignedDetails) EventType() Type { return Signed }

// EventType implements Details.
func (*RatedDetails) EventType() Type { return Rated }

// EventType implements Details.
func (*DisputedDetails) EventType() Type { return Disputed }

// EventType implements Details.
func (*ArbitratedDetails) EventType() Type { return Arbitrated }

// EventType implements Details.
func (x *MessageDetails) EventType() Type { return x.Type }

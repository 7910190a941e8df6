package job

import (
	"slices"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// State is a state of the job in the marketplace.
type State uint8

// Possible job states. A job may cycle Open -> Taken -> Closed -> Open.
const (
	Open State = iota
	Taken
	Closed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Open:
		return "Open"
	case Taken:
		return "Taken"
	case Closed:
		return "Closed"
	default:
		return "Unknown#" + strconv.Itoa(int(s))
	}
}

// Roles groups participants of the job. Zero Worker means the job is not
// assigned, zero Arbitrator means there is no (or refused) arbitrator.
type Roles struct {
	Creator    util.Uint160
	Worker     util.Uint160
	Arbitrator util.Uint160
}

// Job is a materialized state of the job built from its event log.
type Job struct {
	ID                 uint256.Int
	Title              string
	ContentHash        util.Uint256
	Tags               []string
	Token              util.Uint160
	Amount             uint256.Int
	MaxTime            uint32
	DeliveryMethod     string
	MultipleApplicants bool
	WhitelistWorkers   bool
	AllowedWorkers     []util.Uint160
	Roles              Roles
	State              State
	EscrowID           uint256.Int
	// CollateralOwed is the amount the creator owes the worker.
	CollateralOwed uint256.Int
	Disputed       bool
	// Rating is 0 for unrated jobs.
	Rating uint8
	// ResultHash is zero until a result is delivered.
	ResultHash util.Uint256
	// Timestamp is the ledger time of the last transition to Open.
	Timestamp uint64

	// Content and Result are filled by content resolution, they are not
	// part of the state derived from events.
	Content string
	Result  string
}

// Clone returns deep copy of the job.
func (x *Job) Clone() *Job {
	res := *x
	res.Tags = slices.Clone(x.Tags)
	res.AllowedWorkers = slices.Clone(x.AllowedWorkers)
	return &res
}

// IsAllowed checks whether given address is in the AllowedWorkers list.
func (x *Job) IsAllowed(addr util.Uint160) bool {
	return slices.Contains(x.AllowedWorkers, addr)
}

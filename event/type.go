package event

import "strconv"

// Type is a type of the job event emitted by the marketplace contract.
type Type uint8

// All known event types. Values match the contract's numbering.
const (
	Created Type = iota
	Taken
	Paid
	Updated
	Signed
	Completed
	Delivered
	Closed
	Reopened
	Rated
	Refunded
	Disputed
	Arbitrated
	ArbitrationRefused
	WhitelistedWorkerAdded
	WhitelistedWorkerRemoved
	CollateralWithdrawn
	WorkerMessage
	OwnerMessage
)

var typeNames = [...]string{
	Created:                  "Created",
	Taken:                    "Taken",
	Paid:                     "Paid",
	Updated:                  "Updated",
	Signed:                   "Signed",
	Completed:                "Completed",
	Delivered:                "Delivered",
	Closed:                   "Closed",
	Reopened:                 "Reopened",
	Rated:                    "Rated",
	Refunded:                 "Refunded",
	Disputed:                 "Disputed",
	Arbitrated:               "Arbitrated",
	ArbitrationRefused:       "ArbitrationRefused",
	WhitelistedWorkerAdded:   "WhitelistedWorkerAdded",
	WhitelistedWorkerRemoved: "WhitelistedWorkerRemoved",
	CollateralWithdrawn:      "CollateralWithdrawn",
	WorkerMessage:            "WorkerMessage",
	OwnerMessage:             "OwnerMessage",
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown#" + strconv.Itoa(int(t))
}

// Known checks whether t is one of the declared event types.
func (t Type) Known() bool {
	return int(t) < len(typeNames)
}

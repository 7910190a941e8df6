package job

import (
	"fmt"
	"slices"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// GracePeriod is the time in seconds since the job was opened during which
// decrease of the payment or closing the job makes the creator owe the
// difference to the worker.
const GracePeriod = 24 * 60 * 60

// PrematureEventError is returned when an event arrives before the event it
// depends on.
type PrematureEventError struct {
	// Event which can't be applied.
	Event event.JobEvent
	// Required is the type of the missing predecessor.
	Required event.Type
}

func (e *PrematureEventError) Error() string {
	return fmt.Sprintf("event #%d (%s) requires preceding %s event", e.Event.ID, e.Event.Type, e.Required)
}

// EventWithDiffs is a replayed event along with its decoded payload, job
// snapshot after the event and the changes the event caused.
type EventWithDiffs struct {
	event.JobEvent

	// Details is the decoded payload, nil for events without one.
	Details event.Details
	// Job is a snapshot after the event. It's nil only for Created event
	// which failed to be decoded.
	Job *Job
	// Diffs are ordered changes of the job fields.
	Diffs []Diff
	// DecodeErr is set when the payload could not be decoded. Such event
	// does not change the job.
	DecodeErr error
}

// ReducePrm groups parameters of Reducer.Reduce.
type ReducePrm struct {
	// JobID is the identifier of the job being replayed. Ignored when Prior
	// is set.
	JobID uint256.Int
	// Prior is the snapshot to continue replay from. Nil means replay from
	// the very first (Created) event.
	Prior *Job
	// FirstID is assigned to the first event, subsequent events get
	// increasing identifiers. For incremental replay it's the number of
	// already applied events.
	FirstID uint64
}

// Reducer folds job event log into job snapshots.
type Reducer struct {
	decoder event.Decoder
}

// NewReducer returns Reducer decoding payloads with the given decoder.
func NewReducer(d event.Decoder) *Reducer {
	return &Reducer{decoder: d}
}

// Reduce applies events in the given order. Each resulting snapshot is an
// independent copy. The events themselves are not modified.
//
// Reduce fails with *PrematureEventError if the log does not start with the
// Created event and there is no prior snapshot, nothing else aborts the
// replay: undecodable events are returned with DecodeErr and leave the job
// as is.
func (r *Reducer) Reduce(prm ReducePrm, events []event.JobEvent) ([]EventWithDiffs, error) {
	cur := prm.Prior
	if cur != nil {
		cur = cur.Clone()
	}

	res := make([]EventWithDiffs, 0, len(events))
	for i := range events {
		ev := events[i]
		ev.ID = prm.FirstID + uint64(i)

		if cur == nil && ev.Type != event.Created {
			return nil, &PrematureEventError{Event: ev, Required: event.Created}
		}

		next, details, err := r.apply(prm.JobID, cur, ev)
		if err != nil {
			res = append(res, EventWithDiffs{JobEvent: ev, Job: snapshot(cur), DecodeErr: err})
			continue
		}

		var diffs []Diff
		if ev.Type == event.Created {
			diffs = Compare(nil, next)
		} else {
			diffs = Compare(cur, next)
		}

		res = append(res, EventWithDiffs{
			JobEvent: ev,
			Details:  details,
			Job:      snapshot(next),
			Diffs:    diffs,
		})
		cur = next
	}

	return res, nil
}

// Fold is a shortcut for Reduce returning only the final snapshot.
func (r *Reducer) Fold(prm ReducePrm, events []event.JobEvent) (*Job, error) {
	res, err := r.Reduce(prm, events)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return snapshot(prm.Prior), nil
	}
	return snapshot(res[len(res)-1].Job), nil
}

func snapshot(j *Job) *Job {
	if j == nil {
		return nil
	}
	return j.Clone()
}

// apply returns new job state after the event. cur is never modified.
func (r *Reducer) apply(jobID uint256.Int, cur *Job, ev event.JobEvent) (*Job, event.Details, error) {
	details, err := r.decoder.Decode(ev.Type, ev.Data)
	if err != nil {
		return nil, nil, err
	}

	if ev.Type == event.Created {
		if cur != nil {
			jobID = cur.ID
		}
		return created(jobID, ev, details.(*event.CreatedDetails)), details, nil
	}

	next := cur.Clone()

	switch ev.Type {
	case event.Taken, event.Paid:
		escrowID, err := event.DecodeEscrowID(ev.Type, ev.Data)
		if err != nil {
			return nil, nil, err
		}
		next.Roles.Worker = ev.Address
		next.State = Taken
		next.EscrowID = escrowID
	case event.Updated:
		d := details.(*event.UpdatedDetails)
		next.Title = d.Title
		next.ContentHash = d.ContentHash
		next.Tags = slices.Clone(d.Tags)
		next.MaxTime = d.MaxTime
		next.Roles.Arbitrator = d.Arbitrator
		next.WhitelistWorkers = d.WhitelistWorkers
		if d.Amount.Lt(&cur.Amount) {
			var decrease uint256.Int
			decrease.Sub(&cur.Amount, &d.Amount)
			owe(next, &decrease, ev.Timestamp)
		}
		next.Amount = d.Amount
	case event.Signed:
	case event.Completed:
		next.State = Closed
	case event.Delivered:
		h, err := event.DecodeResultHash(ev.Data)
		if err != nil {
			return nil, nil, err
		}
		next.ResultHash = h
	case event.Closed:
		next.State = Closed
		owe(next, &cur.Amount, ev.Timestamp)
	case event.Reopened:
		next.State = Open
		next.ResultHash = util.Uint256{}
		next.Timestamp = ev.Timestamp
		if next.CollateralOwed.Lt(&next.Amount) {
			next.CollateralOwed.Clear()
		} else {
			next.CollateralOwed.Sub(&next.CollateralOwed, &next.Amount)
		}
	case event.Rated:
		next.Rating = details.(*event.RatedDetails).Rating
	case event.Refunded:
		next.State = Open
		next.EscrowID.Clear()
		next.AllowedWorkers = slices.DeleteFunc(next.AllowedWorkers, func(a util.Uint160) bool {
			return a == cur.Roles.Worker
		})
		next.Roles.Worker = util.Uint160{}
	case event.Disputed:
		next.Disputed = true
	case event.Arbitrated:
		d := details.(*event.ArbitratedDetails)
		next.State = Closed
		next.CollateralOwed.Add(&next.CollateralOwed, &d.CreatorAmount)
	case event.ArbitrationRefused:
		next.Roles.Arbitrator = util.Uint160{}
	case event.WhitelistedWorkerAdded:
		if !next.IsAllowed(ev.Address) {
			next.AllowedWorkers = append(next.AllowedWorkers, ev.Address)
		}
	case event.WhitelistedWorkerRemoved:
		next.AllowedWorkers = slices.DeleteFunc(next.AllowedWorkers, func(a util.Uint160) bool {
			return a == ev.Address
		})
	case event.CollateralWithdrawn:
		next.CollateralOwed.Clear()
	case event.OwnerMessage, event.WorkerMessage:
	default:
		// events of unknown types are kept in the log but change nothing
	}

	return next, details, nil
}

func created(id uint256.Int, ev event.JobEvent, d *event.CreatedDetails) *Job {
	return &Job{
		ID:                 id,
		Title:              d.Title,
		ContentHash:        d.ContentHash,
		Tags:               slices.Clone(d.Tags),
		Token:              d.Token,
		Amount:             d.Amount,
		MaxTime:            d.MaxTime,
		DeliveryMethod:     d.DeliveryMethod,
		MultipleApplicants: d.MultipleApplicants,
		WhitelistWorkers:   d.WhitelistWorkers,
		AllowedWorkers:     slices.Clone(d.AllowedWorkers),
		Roles: Roles{
			Creator:    ev.Address,
			Arbitrator: d.Arbitrator,
		},
		State:     Open,
		Timestamp: ev.Timestamp,
	}
}

// owe applies collateral rule: within the grace period since the job was
// opened the amount is added to the collateral owed to the worker, after
// it the debt is reset.
func owe(j *Job, amount *uint256.Int, now uint64) {
	if now < j.Timestamp+GracePeriod {
		j.CollateralOwed.Add(&j.CollateralOwed, amount)
		return
	}
	j.CollateralOwed.Clear()
}

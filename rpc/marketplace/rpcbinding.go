// Package marketplace contains RPC wrappers for the job marketplace contract.
package marketplace

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// NotificationName is the name of the notification emitted for every job
// event.
const NotificationName = "JobEvent"

// JobEventNotification represents "JobEvent" notification emitted by the
// contract.
type JobEventNotification struct {
	JobID uint256.Int
	Event event.JobEvent
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract
// hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// Hash returns contract hash.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// Events invokes `getEvents` method of contract. It returns at most limit
// events of the job starting from the given index in ledger order.
func (c *ContractReader) Events(jobID *uint256.Int, from, limit uint64) ([]event.JobEvent, error) {
	return itemsToJobEvents(unwrap.Array(c.invoker.Call(c.hash, "getEvents", jobID.ToBig(), new(big.Int).SetUint64(from), new(big.Int).SetUint64(limit))))
}

// EventsCount invokes `getEventsCount` method of contract.
func (c *ContractReader) EventsCount(jobID *uint256.Int) (uint64, error) {
	n, err := unwrap.Int64(c.invoker.Call(c.hash, "getEventsCount", jobID.ToBig()))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative events count %d", n)
	}
	return uint64(n), nil
}

// EventsIterator invokes `iterateEvents` method of contract.
func (c *ContractReader) EventsIterator(jobID *uint256.Int) (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "iterateEvents", jobID.ToBig()))
}

// EventsIteratorExpanded is similar to EventsIterator (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) EventsIteratorExpanded(jobID *uint256.Int, _numOfIteratorItems int) ([]event.JobEvent, error) {
	return itemsToJobEvents(unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "iterateEvents", _numOfIteratorItems, jobID.ToBig())))
}

// TraverseEvents reads the next batch of events from the session iterator
// returned by EventsIterator.
func (c *ContractReader) TraverseEvents(sessionID uuid.UUID, iter *result.Iterator, num int) ([]event.JobEvent, error) {
	return itemsToJobEvents(c.invoker.TraverseIterator(sessionID, iter, num))
}

// TerminateSession closes the iterator session.
func (c *ContractReader) TerminateSession(sessionID uuid.UUID) error {
	return c.invoker.TerminateSession(sessionID)
}

// PublicKey invokes `getPublicKey` method of contract. It returns the
// compressed encryption public key published by the account.
func (c *ContractReader) PublicKey(owner util.Uint160) ([]byte, error) {
	return unwrap.Bytes(c.invoker.Call(c.hash, "getPublicKey", owner))
}

func itemsToJobEvents(arr []stackitem.Item, err error) ([]event.JobEvent, error) {
	if err != nil {
		return nil, err
	}

	res := make([]event.JobEvent, len(arr))
	for i := range arr {
		fields, ok := arr[i].Value().([]stackitem.Item)
		if !ok {
			return nil, fmt.Errorf("item %d: not a struct", i)
		}
		res[i], err = fieldsToJobEvent(fields)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return res, nil
}

// fieldsToJobEvent decodes [type, address, data, timestamp].
func fieldsToJobEvent(arr []stackitem.Item) (event.JobEvent, error) {
	var res event.JobEvent
	if len(arr) != 4 {
		return res, errors.New("wrong number of structure elements")
	}

	typ, err := itemToUint(arr[0], math.MaxUint8)
	if err != nil {
		return res, fmt.Errorf("field Type: %w", err)
	}
	res.Type = event.Type(typ)

	res.Address, err = itemToUint160(arr[1])
	if err != nil {
		return res, fmt.Errorf("field Address: %w", err)
	}

	if _, ok := arr[2].(stackitem.Null); !ok {
		res.Data, err = arr[2].TryBytes()
		if err != nil {
			return res, fmt.Errorf("field Data: %w", err)
		}
	}

	res.Timestamp, err = itemToUint(arr[3], math.MaxUint64)
	if err != nil {
		return res, fmt.Errorf("field Timestamp: %w", err)
	}

	return res, nil
}

func itemToUint(item stackitem.Item, max uint64) (uint64, error) {
	bi, err := item.TryInteger()
	if err != nil {
		return 0, err
	}
	if !bi.IsUint64() || bi.Uint64() > max {
		return 0, fmt.Errorf("value %s is out of range", bi)
	}
	return bi.Uint64(), nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}

func itemToUint256(item stackitem.Item) (uint256.Int, error) {
	var res uint256.Int
	bi, err := item.TryInteger()
	if err != nil {
		return res, err
	}
	if bi.Sign() < 0 {
		return res, fmt.Errorf("negative value %s", bi)
	}
	if res.SetFromBig(bi) {
		return res, fmt.Errorf("value %s overflows uint256", bi)
	}
	return res, nil
}

// JobEventsFromApplicationLog retrieves a set of all emitted events
// with "JobEvent" name from the provided [result.ApplicationLog].
func JobEventsFromApplicationLog(log *result.ApplicationLog) ([]*JobEventNotification, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*JobEventNotification
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != NotificationName {
				continue
			}
			ev := new(JobEventNotification)
			err := ev.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize JobEventNotification from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, ev)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to JobEventNotification
// or returns an error if it's not possible to do to so.
func (e *JobEventNotification) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 5 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.JobID, err = itemToUint256(arr[0])
	if err != nil {
		return fmt.Errorf("field JobID: %w", err)
	}

	e.Event, err = fieldsToJobEvent(arr[1:])
	return err
}

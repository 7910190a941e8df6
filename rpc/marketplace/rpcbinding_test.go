package marketplace

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

type testInv struct {
	err       error
	res       *result.Invoke
	traversed []stackitem.Item

	operation string
	params    []any
}

func (t *testInv) Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	t.operation, t.params = operation, params
	return t.res, t.err
}

func (t *testInv) CallAndExpandIterator(contract util.Uint160, operation string, i int, params ...any) (*result.Invoke, error) {
	t.operation, t.params = operation, params
	return t.res, t.err
}

func (t *testInv) TraverseIterator(uuid.UUID, *result.Iterator, int) ([]stackitem.Item, error) {
	return t.traversed, t.err
}

func (t *testInv) TerminateSession(uuid.UUID) error {
	return nil
}

func halt(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{State: "HALT", Stack: items}
}

func eventItem(typ event.Type, addr util.Uint160, data []byte, ts uint64) stackitem.Item {
	var d stackitem.Item = stackitem.Null{}
	if data != nil {
		d = stackitem.NewByteArray(data)
	}
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.Make(int64(typ)),
		stackitem.NewByteArray(addr.BytesBE()),
		d,
		stackitem.NewBigInteger(new(big.Int).SetUint64(ts)),
	})
}

func TestEvents(t *testing.T) {
	ti := new(testInv)
	r := NewReader(ti, util.Uint160{1, 2, 3})
	jobID := uint256.NewInt(9)

	ti.res = halt(stackitem.Make([]stackitem.Item{
		eventItem(event.Created, util.Uint160{0xc0}, []byte{1, 2}, 100),
		eventItem(event.Taken, util.Uint160{0xd0}, nil, 200),
	}))
	res, err := r.Events(jobID, 5, 10)
	require.NoError(t, err)
	require.Equal(t, []event.JobEvent{
		{Type: event.Created, Address: util.Uint160{0xc0}, Data: []byte{1, 2}, Timestamp: 100},
		{Type: event.Taken, Address: util.Uint160{0xd0}, Timestamp: 200},
	}, res)
	require.Equal(t, "getEvents", ti.operation)
	require.Len(t, ti.params, 3)
	for i, exp := range []int64{9, 5, 10} {
		require.Zero(t, big.NewInt(exp).Cmp(ti.params[i].(*big.Int)), i)
	}

	res, err = r.EventsIteratorExpanded(jobID, 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "iterateEvents", ti.operation)

	ti.traversed = []stackitem.Item{eventItem(event.Rated, util.Uint160{}, []byte{5}, 1)}
	res, err = r.TraverseEvents(uuid.New(), new(result.Iterator), 1)
	require.NoError(t, err)
	require.Equal(t, event.Rated, res[0].Type)

	for _, bad := range []stackitem.Item{
		stackitem.Make(1),
		stackitem.NewStruct([]stackitem.Item{stackitem.Make(1)}),
		stackitem.NewStruct([]stackitem.Item{
			stackitem.Make(1), stackitem.NewByteArray([]byte{1}), stackitem.Null{}, stackitem.Make(0),
		}),
		stackitem.NewStruct([]stackitem.Item{
			stackitem.Make(1), stackitem.NewByteArray(make([]byte, 20)), stackitem.Null{}, stackitem.Make(-1),
		}),
	} {
		ti.res = halt(stackitem.Make([]stackitem.Item{bad}))
		_, err = r.Events(jobID, 0, 1)
		require.Error(t, err)
	}

	ti.res = halt(stackitem.Make([]stackitem.Item{stackitem.NewStruct([]stackitem.Item{
		stackitem.Make(256), stackitem.NewByteArray(make([]byte, 20)), stackitem.Null{}, stackitem.Make(0),
	})}))
	_, err = r.Events(jobID, 0, 1)
	require.ErrorContains(t, err, "field Type")

	ti.err = errors.New("bad")
	_, err = r.Events(jobID, 0, 1)
	require.Error(t, err)
}

func TestEventsCount(t *testing.T) {
	ti := new(testInv)
	r := NewReader(ti, util.Uint160{1, 2, 3})

	ti.res = halt(stackitem.Make(42))
	n, err := r.EventsCount(uint256.NewInt(1))
	require.NoError(t, err)
	require.EqualValues(t, 42, n)

	ti.res = halt(stackitem.Make(-1))
	_, err = r.EventsCount(uint256.NewInt(1))
	require.Error(t, err)

	ti.res = &result.Invoke{State: "FAULT", FaultException: "no job"}
	_, err = r.EventsCount(uint256.NewInt(1))
	require.Error(t, err)
}

func TestPublicKey(t *testing.T) {
	ti := new(testInv)
	r := NewReader(ti, util.Uint160{1, 2, 3})

	pub := append([]byte{0x02}, make([]byte, 32)...)
	ti.res = halt(stackitem.NewByteArray(pub))
	res, err := r.PublicKey(util.Uint160{4})
	require.NoError(t, err)
	require.Equal(t, pub, res)
	require.Equal(t, "getPublicKey", ti.operation)
	require.Equal(t, []any{util.Uint160{4}}, ti.params)
}

func TestJobEventsFromApplicationLog(t *testing.T) {
	_, err := JobEventsFromApplicationLog(nil)
	require.Error(t, err)

	notification := func(items ...stackitem.Item) state.NotificationEvent {
		return state.NotificationEvent{Name: NotificationName, Item: stackitem.NewArray(items)}
	}
	log := &result.ApplicationLog{Executions: []state.Execution{{
		Events: []state.NotificationEvent{
			{Name: "Transfer", Item: stackitem.NewArray(nil)},
			notification(
				stackitem.Make(7),
				stackitem.Make(int64(event.Delivered)),
				stackitem.NewByteArray(util.Uint160{0xd0}.BytesBE()),
				stackitem.NewByteArray([]byte{0xaa}),
				stackitem.Make(1000),
			),
		},
	}}}

	res, err := JobEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, uint64(7), res[0].JobID.Uint64())
	require.Equal(t, event.JobEvent{
		Type:      event.Delivered,
		Address:   util.Uint160{0xd0},
		Data:      []byte{0xaa},
		Timestamp: 1000,
	}, res[0].Event)

	log.Executions[0].Events = append(log.Executions[0].Events, notification(stackitem.Make(-1)))
	_, err = JobEventsFromApplicationLog(log)
	require.Error(t, err)
}

type stateGetter struct {
	f func(int32) (*state.Contract, error)
}

func (s stateGetter) GetContractStateByID(id int32) (*state.Contract, error) {
	return s.f(id)
}

func TestInferHash(t *testing.T) {
	var sg stateGetter
	sg.f = func(int32) (*state.Contract, error) {
		return nil, errors.New("bad")
	}
	_, err := InferHash(sg, 5)
	require.Error(t, err)

	sg.f = func(id int32) (*state.Contract, error) {
		require.EqualValues(t, 5, id)
		return &state.Contract{
			ContractBase: state.ContractBase{
				Hash: util.Uint160{0x01, 0x02, 0x03},
			},
		}, nil
	}
	h, err := InferHash(sg, 5)
	require.NoError(t, err)
	require.Equal(t, util.Uint160{0x01, 0x02, 0x03}, h)
}

package resolve

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/cas"
	"github.com/nspcc-dev/jobmarket/envelope"
	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/jobmarket/job"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

var (
	creator    = util.Uint160{0xc0}
	worker     = util.Uint160{0xd0}
	arbitrator = util.Uint160{0xa0}
)

// memContents is a ContentSource over sealed envelopes.
type memContents map[util.Uint256][]byte

func (m memContents) put(t *testing.T, msg string, key []byte) util.Uint256 {
	data, err := envelope.Seal([]byte(msg), key)
	require.NoError(t, err)
	h := hash.Sha256(data)
	m[h] = data
	return h
}

func (m memContents) FetchContent(_ context.Context, h util.Uint256, key []byte) ([]byte, error) {
	data, ok := m[h]
	if !ok {
		return nil, errors.New("not found")
	}
	return envelope.Open(data, key)
}

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, envelope.KeySize)
}

func encode(t *testing.T, d event.Details) []byte {
	data, err := event.Encoder{}.Encode(d)
	require.NoError(t, err)
	return data
}

func seal(t *testing.T, msg []byte, key []byte) []byte {
	data, err := envelope.Seal(msg, key)
	require.NoError(t, err)
	return data
}

func TestResolve(t *testing.T) {
	var (
		ctx        = context.Background()
		contents   = make(memContents)
		workKey    = testKey(1)
		arbKey     = testKey(2)
		disputeKey = testKey(3)
		jobID      = uint256.NewInt(5)
	)
	keys := StaticKeys{
		NewPair(creator, worker):     workKey,
		NewPair(creator, arbitrator): arbKey,
		NewPair(worker, arbitrator):  disputeKey,
	}

	description := contents.put(t, "job description", nil)
	ownerMsg := contents.put(t, "hi worker", workKey)
	workerMsg := contents.put(t, "hi creator", testKey(9))
	result := contents.put(t, "the result", workKey)
	reason := contents.put(t, "worker is right", arbKey)

	events := []event.JobEvent{
		{Type: event.Created, Address: creator, Data: encode(t, &event.CreatedDetails{
			Title: "Build X", ContentHash: description, Arbitrator: arbitrator, AllowedWorkers: []util.Uint160{},
		})},
		{Type: event.Taken, Address: worker, Data: []byte{1}},
		{Type: event.OwnerMessage, Address: creator, Data: ownerMsg.BytesBE()},
		{Type: event.WorkerMessage, Address: worker, Data: workerMsg.BytesBE()},
		{Type: event.Delivered, Address: worker, Data: result.BytesBE()},
		{Type: event.Disputed, Address: worker, Data: encode(t, &event.DisputedDetails{
			SessionKey: seal(t, workKey, disputeKey),
			Content:    seal(t, []byte("creator ignores me"), disputeKey),
		})},
		{Type: event.Arbitrated, Address: arbitrator, Data: encode(t, &event.ArbitratedDetails{
			CreatorAmount: *uint256.NewInt(1), ReasonHash: reason, WorkerAddress: worker,
		})},
	}

	res, err := job.NewReducer(event.Decoder{}).Reduce(job.ReducePrm{JobID: *jobID}, events)
	require.NoError(t, err)

	r := New(Prm{Logger: zaptest.NewLogger(t), Contents: contents, Keys: keys, Concurrency: 2})
	err = r.Resolve(ctx, Target{JobID: *jobID, Events: res})
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)

	require.Equal(t, "job description", res[0].Details.(*event.CreatedDetails).Content)
	for i := range res {
		require.Equal(t, "job description", res[i].Job.Content, i)
	}

	require.Equal(t, "hi worker", res[2].Details.(*event.MessageDetails).Content)
	require.Equal(t, cas.Placeholder, res[3].Details.(*event.MessageDetails).Content)

	require.Empty(t, res[3].Job.Result)
	for i := 4; i < len(res); i++ {
		require.Equal(t, "the result", res[i].Job.Result, i)
	}

	disputed := res[5].Details.(*event.DisputedDetails)
	require.Equal(t, hex.EncodeToString(workKey), disputed.DecryptedSessionKey)
	require.Equal(t, "creator ignores me", disputed.DecryptedContent)

	require.Equal(t, "worker is right", res[6].Details.(*event.ArbitratedDetails).Reason)
}

func TestResolveMissingContent(t *testing.T) {
	ctx := context.Background()
	contents := make(memContents)
	jobID := uint256.NewInt(1)

	updated := contents.put(t, "new description", nil)
	res, err := job.NewReducer(event.Decoder{}).Reduce(job.ReducePrm{JobID: *jobID}, []event.JobEvent{
		{Type: event.Created, Address: creator, Data: encode(t, &event.CreatedDetails{
			ContentHash: util.Uint256{0xff}, AllowedWorkers: []util.Uint160{},
		})},
		{Type: event.Updated, Address: creator, Data: encode(t, &event.UpdatedDetails{
			ContentHash: updated, Tags: []string{},
		})},
		{Type: event.Updated, Address: creator, Data: encode(t, &event.UpdatedDetails{
			Tags: []string{},
		})},
	})
	require.NoError(t, err)

	err = New(Prm{Contents: contents, Keys: StaticKeys{}}).Resolve(ctx, Target{JobID: *jobID, Events: res})
	require.Error(t, err)

	require.Equal(t, cas.Placeholder, res[0].Job.Content)
	require.Equal(t, "new description", res[1].Job.Content)
	require.Empty(t, res[2].Job.Content)
	require.Empty(t, res[2].Details.(*event.UpdatedDetails).Content)

	require.NoError(t, New(Prm{Contents: contents, Keys: StaticKeys{}}).Resolve(ctx, Target{JobID: *jobID}))
}

func TestResolveIncremental(t *testing.T) {
	ctx := context.Background()
	contents := make(memContents)
	jobID := uint256.NewInt(1)
	key := testKey(1)
	keys := StaticKeys{NewPair(creator, worker): key}

	description := contents.put(t, "description", nil)
	result := contents.put(t, "result", key)

	events := []event.JobEvent{
		{Type: event.Created, Address: creator, Data: encode(t, &event.CreatedDetails{
			ContentHash: description, AllowedWorkers: []util.Uint160{},
		})},
		{Type: event.Taken, Address: worker},
		{Type: event.Delivered, Address: worker, Data: result.BytesBE()},
		{Type: event.Completed, Address: creator},
		{Type: event.Rated, Address: creator, Data: []byte{5}},
	}

	reducer := job.NewReducer(event.Decoder{})
	prior, err := reducer.Fold(job.ReducePrm{JobID: *jobID}, events[:3])
	require.NoError(t, err)

	res, err := reducer.Reduce(job.ReducePrm{Prior: prior, FirstID: 3}, events[3:])
	require.NoError(t, err)

	r := New(Prm{Contents: contents, Keys: keys})
	require.NoError(t, r.Resolve(ctx, Target{JobID: *jobID, Prior: prior, Events: res}))
	require.Equal(t, "description", prior.Content)
	require.Equal(t, "result", prior.Result)
	for i := range res {
		require.Equal(t, "description", res[i].Job.Content)
		require.Equal(t, "result", res[i].Job.Result)
	}
}

// Package snapshot persists materialized jobs for incremental replay.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/cache"
	"github.com/nspcc-dev/jobmarket/job"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Snapshot is a job state after Applied events.
type Snapshot struct {
	Job *job.Job
	// Applied is the number of events reduced into Job.
	Applied uint64
}

// record is a stored form of the Snapshot. Big integers are encoded as
// 32-byte big-endian strings.
type record struct {
	Applied uint64    `cbor:"1,keyasint"`
	Job     jobRecord `cbor:"2,keyasint"`
}

type jobRecord struct {
	ID                 [32]byte  `cbor:"1,keyasint"`
	Title              string    `cbor:"2,keyasint"`
	ContentHash        []byte    `cbor:"3,keyasint"`
	Tags               []string  `cbor:"4,keyasint"`
	Token              []byte    `cbor:"5,keyasint"`
	Amount             [32]byte  `cbor:"6,keyasint"`
	MaxTime            uint32    `cbor:"7,keyasint"`
	DeliveryMethod     string    `cbor:"8,keyasint"`
	MultipleApplicants bool      `cbor:"9,keyasint"`
	WhitelistWorkers   bool      `cbor:"10,keyasint"`
	AllowedWorkers     [][]byte  `cbor:"11,keyasint"`
	Creator            []byte    `cbor:"12,keyasint"`
	Worker             []byte    `cbor:"13,keyasint"`
	Arbitrator         []byte    `cbor:"14,keyasint"`
	State              job.State `cbor:"15,keyasint"`
	EscrowID           [32]byte  `cbor:"16,keyasint"`
	CollateralOwed     [32]byte  `cbor:"17,keyasint"`
	Disputed           bool      `cbor:"18,keyasint"`
	Rating             uint8     `cbor:"19,keyasint"`
	ResultHash         []byte    `cbor:"20,keyasint"`
	Timestamp          uint64    `cbor:"21,keyasint"`
}

// Store keeps snapshots in cache.Store.
type Store struct {
	store cache.Store
}

// NewStore returns Store over the given storage.
func NewStore(s cache.Store) *Store {
	return &Store{store: s}
}

// Get returns stored snapshot of the job. Missing snapshot is not an error,
// zero Snapshot is returned.
func (s *Store) Get(ctx context.Context, jobID *uint256.Int) (Snapshot, error) {
	data, err := s.store.Get(ctx, cache.SnapshotKey(jobID.Dec()))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	res, err := Unmarshal(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot of job %s: %w", jobID.Dec(), err)
	}
	return res, nil
}

// Put stores the snapshot.
func (s *Store) Put(ctx context.Context, snap Snapshot) error {
	if snap.Job == nil {
		return errors.New("nil job")
	}

	data, err := Marshal(snap)
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, cache.SnapshotKey(snap.Job.ID.Dec()), data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Marshal encodes the snapshot into CBOR.
func Marshal(snap Snapshot) ([]byte, error) {
	j := snap.Job
	rec := record{
		Applied: snap.Applied,
		Job: jobRecord{
			ID:                 j.ID.Bytes32(),
			Title:              j.Title,
			ContentHash:        j.ContentHash.BytesBE(),
			Tags:               j.Tags,
			Token:              j.Token.BytesBE(),
			Amount:             j.Amount.Bytes32(),
			MaxTime:            j.MaxTime,
			DeliveryMethod:     j.DeliveryMethod,
			MultipleApplicants: j.MultipleApplicants,
			WhitelistWorkers:   j.WhitelistWorkers,
			AllowedWorkers:     make([][]byte, len(j.AllowedWorkers)),
			Creator:            j.Roles.Creator.BytesBE(),
			Worker:             j.Roles.Worker.BytesBE(),
			Arbitrator:         j.Roles.Arbitrator.BytesBE(),
			State:              j.State,
			EscrowID:           j.EscrowID.Bytes32(),
			CollateralOwed:     j.CollateralOwed.Bytes32(),
			Disputed:           j.Disputed,
			Rating:             j.Rating,
			ResultHash:         j.ResultHash.BytesBE(),
			Timestamp:          j.Timestamp,
		},
	}
	for i := range j.AllowedWorkers {
		rec.Job.AllowedWorkers[i] = j.AllowedWorkers[i].BytesBE()
	}

	data, err := cbor.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal decodes CBOR-encoded snapshot.
func Unmarshal(data []byte) (Snapshot, error) {
	var rec record
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return Snapshot{}, err
	}

	r := rec.Job
	j := &job.Job{
		Title:              r.Title,
		Tags:               r.Tags,
		MaxTime:            r.MaxTime,
		DeliveryMethod:     r.DeliveryMethod,
		MultipleApplicants: r.MultipleApplicants,
		WhitelistWorkers:   r.WhitelistWorkers,
		AllowedWorkers:     make([]util.Uint160, 0, len(r.AllowedWorkers)),
		State:              r.State,
		Disputed:           r.Disputed,
		Rating:             r.Rating,
		Timestamp:          r.Timestamp,
	}
	j.ID.SetBytes32(r.ID[:])
	j.Amount.SetBytes32(r.Amount[:])
	j.EscrowID.SetBytes32(r.EscrowID[:])
	j.CollateralOwed.SetBytes32(r.CollateralOwed[:])

	var err error
	if j.ContentHash, err = util.Uint256DecodeBytesBE(r.ContentHash); err != nil {
		return Snapshot{}, fmt.Errorf("content hash: %w", err)
	}
	if j.ResultHash, err = util.Uint256DecodeBytesBE(r.ResultHash); err != nil {
		return Snapshot{}, fmt.Errorf("result hash: %w", err)
	}
	for _, f := range []struct {
		name string
		dst  *util.Uint160
		src  []byte
	}{
		{"token", &j.Token, r.Token},
		{"creator", &j.Roles.Creator, r.Creator},
		{"worker", &j.Roles.Worker, r.Worker},
		{"arbitrator", &j.Roles.Arbitrator, r.Arbitrator},
	} {
		if *f.dst, err = util.Uint160DecodeBytesBE(f.src); err != nil {
			return Snapshot{}, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	for i := range r.AllowedWorkers {
		a, err := util.Uint160DecodeBytesBE(r.AllowedWorkers[i])
		if err != nil {
			return Snapshot{}, fmt.Errorf("allowed worker #%d: %w", i, err)
		}
		j.AllowedWorkers = append(j.AllowedWorkers, a)
	}

	return Snapshot{Job: j, Applied: rec.Applied}, nil
}

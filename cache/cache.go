/*
Package cache provides key-value stores for derived data: hashed wallet
signatures, fetched contents and job snapshots.
*/
package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get for missing keys.
var ErrNotFound = errors.New("not found")

// Store is a string-keyed byte store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value stored by the key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores the value by the key overwriting the previous one.
	Set(ctx context.Context, key string, value []byte) error
}

// Key prefixes of the stored entries.
const (
	prefixSignature = "HashedSignature-"
	prefixContent   = "IpfsContent-"
	prefixSnapshot  = "JobSnapshot-"
)

// SignatureKey returns key of the hashed wallet signature of the account.
func SignatureKey(address string) string {
	return prefixSignature + address
}

// ContentKey returns key of the raw content fetched by CID.
func ContentKey(cid string) string {
	return prefixContent + cid
}

// SnapshotKey returns key of the materialized job.
func SnapshotKey(jobID string) string {
	return prefixSnapshot + jobID
}

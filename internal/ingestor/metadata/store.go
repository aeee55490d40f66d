// Package metadata persists upload metadata records into an external keyed
// store. The store has exactly one capability: insert-if-absent on the
// composite (filename, upload timestamp) key.
package metadata

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/ingestpipe/internal/common"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
)

// WriteResult is the three-way outcome of a conditional insert.
type WriteResult int

const (
	// WriteCreated means a new record was stored.
	WriteCreated WriteResult = iota
	// WriteDuplicate means a record with the same composite key already
	// existed. Not an error: duplicate suppression is a successful no-op.
	WriteDuplicate
	// WriteFailed means the store rejected the write; the reason is in the
	// accompanying error.
	WriteFailed
)

func (r WriteResult) String() string {
	switch r {
	case WriteCreated:
		return "created"
	case WriteDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Store is the writer's view of the external keyed store.
type Store interface {
	// Insert performs a conditional insert. It returns WriteDuplicate with
	// a nil error when the composite key already exists, and WriteFailed
	// with a non-nil error for every other store-level failure.
	Insert(ctx context.Context, record *models.MetadataRecord) (WriteResult, error)
}

// transientAPICodes are provider error codes worth retrying.
var transientAPICodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"ThrottlingException":                    {},
	"RequestLimitExceeded":                   {},
	"InternalServerError":                    {},
	"ServiceUnavailable":                     {},
	"SlowDown":                               {},
}

// IsTransient reports whether err is worth retrying: timeouts, throttling
// and transient unavailability. Everything else is treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, common.ErrStoreUnavailable) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := transientAPICodes[apiErr.ErrorCode()]; ok {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}

	return false
}

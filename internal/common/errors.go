// Package common defines shared sentinel errors used across the ingestion
// pipeline components. Callers should use errors.Is to match these values.
package common

import "errors"

var (

	// validation errors for raw object keys; expected, input-driven
	// rejections that never escalate to an alert
	ErrEmptyKey          = errors.New("key is empty")
	ErrKeyTooLong        = errors.New("key too long")
	ErrNullByteInjection = errors.New("key contains null byte")
	ErrPathTraversal     = errors.New("path traversal attempt")

	// store-specific errors
	ErrStoreUnavailable = errors.New("metadata store unavailable")

	// configuration errors
	ErrUnknownBackend = errors.New("unknown metadata backend")
)

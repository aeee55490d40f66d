// Package validate checks raw object keys against security and
// well-formedness rules before the pipeline touches them.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ingestpipe/internal/common"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
)

// MaxKeyLength is the object-store limit on key length, in bytes.
const MaxKeyLength = 1024

// Key validates a raw object key and, on success, returns the
// ValidatedUpload the workflow persists. The upload timestamp is
// caller-supplied so the function stays deterministic.
//
// Rules are checked in order, first match wins:
//
//  1. empty or whitespace-only key
//  2. longer than MaxKeyLength bytes
//  3. contains a null byte
//  4. contains ".." or begins with "/"
//
// The function is pure: no side effects, identical input always yields an
// identical result.
func Key(rawKey string, uploadTimestamp string) (*models.ValidatedUpload, error) {
	if strings.TrimSpace(rawKey) == "" {
		return nil, common.ErrEmptyKey
	}

	if len(rawKey) > MaxKeyLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", common.ErrKeyTooLong, len(rawKey), MaxKeyLength)
	}

	if strings.ContainsRune(rawKey, '\x00') {
		return nil, fmt.Errorf("%w: %q", common.ErrNullByteInjection, rawKey)
	}

	// Any ".." occurrence is rejected, not just full "../" segments.
	// A conservative superset of the traversal sequences that matter.
	if strings.Contains(rawKey, "..") || strings.HasPrefix(rawKey, "/") {
		return nil, fmt.Errorf("%w: %q", common.ErrPathTraversal, rawKey)
	}

	return &models.ValidatedUpload{
		Filename:        rawKey,
		UploadTimestamp: uploadTimestamp,
	}, nil
}

// IsValidationError reports whether err is one of the key-validation
// rejections. The workflow uses this to distinguish expected input
// rejections from system faults.
func IsValidationError(err error) bool {
	return errors.Is(err, common.ErrEmptyKey) ||
		errors.Is(err, common.ErrKeyTooLong) ||
		errors.Is(err, common.ErrNullByteInjection) ||
		errors.Is(err, common.ErrPathTraversal)
}

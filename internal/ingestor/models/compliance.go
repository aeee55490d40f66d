package models

import "time"

// ResourceType identifies the kind of resource a compliance finding is about.
type ResourceType string

const (
	ResourceBucket ResourceType = "Bucket"
	ResourceTable  ResourceType = "Table"
)

// ComplianceFinding records the encryption state of one resource. The
// scanner only aggregates findings for resources it could not confirm as
// encrypted, so Encrypted is false for every finding in a report.
type ComplianceFinding struct {
	ResourceType ResourceType
	ResourceID   string
	Encrypted    bool
	Reason       string
}

// ScanReport is the result of one compliance scan. It is handed to the
// alert publisher when non-empty and discarded afterwards.
type ScanReport struct {
	Findings  []ComplianceFinding
	ScannedAt time.Time
}

// Empty reports whether the scan found nothing to flag.
func (r *ScanReport) Empty() bool {
	return len(r.Findings) == 0
}

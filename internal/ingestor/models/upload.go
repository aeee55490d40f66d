// Package models contains the data types passed between the pipeline
// components: upload events, validated uploads, metadata records, workflow
// executions and compliance findings.
package models

// UploadEvent describes one newly stored object, as reported by the object
// store's notification interface. The Key is untrusted input until it has
// passed validation.
type UploadEvent struct {
	Bucket    string
	Key       string
	EventTime string
}

// ValidatedUpload is the validated derivative of an UploadEvent. It is the
// only form the pipeline persists.
type ValidatedUpload struct {
	Filename        string
	UploadTimestamp string
}

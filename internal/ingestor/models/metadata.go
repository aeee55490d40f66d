package models

// MetadataRecord is one row in the external keyed store. Filename and
// UploadTimestamp form the composite unique key; the record is never
// mutated after creation.
type MetadataRecord struct {
	Filename        string
	UploadTimestamp string
	Bucket          string
	EventTime       string
}

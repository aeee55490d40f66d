// Package ingress consumes upload-event notifications, validates them and
// starts one workflow execution per valid event.
package ingress

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
)

// notification mirrors the storage provider's event-notification JSON; only
// the fields the pipeline reads are mapped.
type notification struct {
	Records []struct {
		EventTime string `json:"eventTime"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseNotification decodes an event-notification payload into upload
// events. Object keys arrive URL-encoded in notifications and are decoded
// here; a key that cannot be decoded is passed through raw so validation
// still sees it.
func ParseNotification(payload []byte) ([]models.UploadEvent, error) {

	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}

	events := make([]models.UploadEvent, 0, len(n.Records))
	for _, record := range n.Records {
		key := record.S3.Object.Key
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		events = append(events, models.UploadEvent{
			Bucket:    record.S3.Bucket.Name,
			Key:       key,
			EventTime: record.EventTime,
		})
	}

	return events, nil
}

package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/ingestpipe/internal/flagx"
	"github.com/dmitrijs2005/ingestpipe/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. All fields are pointers so an absent key can be
// told apart from a zero value: a partial file overrides only the keys it
// sets and leaves the rest of the defaults in place.
type JsonConfig struct {
	QueueURL            *string         `json:"queue_url"`
	MetadataBackend     *string         `json:"metadata_backend"`
	MetadataTable       *string         `json:"metadata_table"`
	DatabaseDSN         *string         `json:"database_dsn"`
	AlertTopicARN       *string         `json:"alert_topic_arn"`
	AWSRegion           *string         `json:"aws_region"`
	AWSAccessKeyID      *string         `json:"aws_access_key_id"`
	AWSSecretAccessKey  *string         `json:"aws_secret_access_key"`
	AWSBaseEndpoint     *string         `json:"aws_base_endpoint"`
	ScanInterval        *timex.Duration `json:"scan_interval"`
	RequireKMS          *bool           `json:"require_kms"`
	WriteRetryBaseDelay *timex.Duration `json:"write_retry_base_delay"`
	WriteMaxAttempts    *int            `json:"write_max_attempts"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config
// command-line flags; if neither is set, no JSON file is loaded.
//
// If the file cannot be read or contains invalid JSON, the function
// panics. The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.QueueURL != nil {
		config.QueueURL = *c.QueueURL
	}
	if c.MetadataBackend != nil {
		config.MetadataBackend = *c.MetadataBackend
	}
	if c.MetadataTable != nil {
		config.MetadataTable = *c.MetadataTable
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.AlertTopicARN != nil {
		config.AlertTopicARN = *c.AlertTopicARN
	}
	if c.AWSRegion != nil {
		config.AWSRegion = *c.AWSRegion
	}
	if c.AWSAccessKeyID != nil {
		config.AWSAccessKeyID = *c.AWSAccessKeyID
	}
	if c.AWSSecretAccessKey != nil {
		config.AWSSecretAccessKey = *c.AWSSecretAccessKey
	}
	if c.AWSBaseEndpoint != nil {
		config.AWSBaseEndpoint = *c.AWSBaseEndpoint
	}
	if c.ScanInterval != nil {
		config.ScanInterval = time.Duration(c.ScanInterval.Duration)
	}
	if c.RequireKMS != nil {
		config.RequireKMS = *c.RequireKMS
	}
	if c.WriteRetryBaseDelay != nil {
		config.WriteRetryBaseDelay = time.Duration(c.WriteRetryBaseDelay.Duration)
	}
	if c.WriteMaxAttempts != nil {
		config.WriteMaxAttempts = *c.WriteMaxAttempts
	}
}

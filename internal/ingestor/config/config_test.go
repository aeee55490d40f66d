package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, BackendDynamo, c.MetadataBackend)
	assert.Equal(t, "file-metadata", c.MetadataTable)
	assert.Equal(t, "eu-central-1", c.AWSRegion)
	assert.Equal(t, 24*time.Hour, c.ScanInterval)
	assert.Equal(t, 2*time.Second, c.WriteRetryBaseDelay)
	assert.Equal(t, 3, c.WriteMaxAttempts)
	assert.False(t, c.RequireKMS)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")
	assert.Equal(t, BackendDynamo, c.MetadataBackend)
	assert.Equal(t, 24*time.Hour, c.ScanInterval)
	assert.Equal(t, 3, c.WriteMaxAttempts)
}

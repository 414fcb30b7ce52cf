package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 90, cfg.PA.StopHigh)
	assert.Equal(t, 70, cfg.PA.StopOK)
	assert.Equal(t, 80, cfg.PA.StopAvg)
}

func TestValidateCatchesBadOverlap(t *testing.T) {
	cfg := Default()
	cfg.Chunk.OverlapTokens = cfg.Chunk.MaxTokens
	assert.Error(t, cfg.Validate())
}

func TestValidateCatchesZeroConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Concurrency.MaxConcurrentFiles = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateCatchesMissingStorageRoot(t *testing.T) {
	cfg := Default()
	cfg.Storage.Root = ""
	assert.Error(t, cfg.Validate())
}

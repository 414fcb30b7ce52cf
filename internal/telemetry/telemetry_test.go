package telemetry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersConcurrentIncrement(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncFilesScanned()
			c.IncLLMCalls()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.EqualValues(t, 100, snap.FilesScanned)
	assert.EqualValues(t, 100, snap.LLMCalls)
	assert.EqualValues(t, 0, snap.FailedUnits)
}

package semerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndUnwrap(t *testing.T) {
	base := errors.New("connection reset")
	err := Transient("llm.Complete", base)

	assert.True(t, Is(err, KindTransient))
	assert.False(t, Is(err, KindFatal))
	assert.Equal(t, KindTransient, KindOf(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "llm.Complete")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNewNilIsNil(t *testing.T) {
	assert.Nil(t, New(KindFatal, "op", nil))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, Is(errors.New("plain"), KindTransient))
}

package errors

import (
	stderr "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, Is(e.Unwrap(), e2))
}

func TestErrorSentinelUntouched(t *testing.T) {
	sentinel := New("sentinel")
	wrapped := sentinel.Wrap(stderr.New("context"))
	assert.True(t, Is(wrapped, sentinel))
	assert.Nil(t, sentinel.Unwrap(), "wrapping must not mutate the sentinel")
	assert.Equal(t, "sentinel: context", wrapped.Error())
}

func TestWrapMessage(t *testing.T) {
	sentinel := New("not found")
	err := sentinel.WrapMessage("dataset %q, file %q", "ds1", "data/x.csv")
	assert.True(t, Is(err, sentinel))
	assert.Contains(t, err.Error(), `dataset "ds1"`)
	assert.Contains(t, err.Error(), `file "data/x.csv"`)
}

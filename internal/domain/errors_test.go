package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := NewLoadError("outdir/00/00/00/000004", "cannot open artifact", fs.ErrNotExist)
	assert.Equal(t, "LOAD: cannot open artifact (key=outdir/00/00/00/000004): file does not exist", err.Error())
	assert.ErrorIs(t, err, fs.ErrNotExist)

	v := NewValidationError("bad argument count", nil)
	assert.Equal(t, "VALIDATION: bad argument count", v.Error())
}

func TestError_Predicates(t *testing.T) {
	wrapped := fmt.Errorf("worker 3: %w", NewLoadError("k", "missing artifact", nil))

	assert.True(t, IsLoad(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.False(t, IsResource(wrapped))
	assert.False(t, IsExhausted(wrapped))

	assert.True(t, IsResource(NewResourceError("capacity", nil)))
	assert.True(t, IsExhausted(NewExhaustedError(7, 10)))
	assert.False(t, IsLoad(errors.New("plain")))
}

func TestErrClosed_Identity(t *testing.T) {
	err := fmt.Errorf("get: %w", ErrClosed)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestVerdict(t *testing.T) {
	assert.False(t, Inconclusive.Conclusive())
	assert.True(t, True.Conclusive())
	assert.True(t, False.Conclusive())

	assert.Equal(t, "even", True.Parity())
	assert.Equal(t, "odd", False.Parity())

	for _, v := range []Verdict{Inconclusive, True, False} {
		got, err := ParseVerdict(v.String())
		assert.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseVerdict("maybe")
	assert.Error(t, err)
}

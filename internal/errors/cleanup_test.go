package errors

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubCloser struct {
	err    error
	closed bool
}

func (s *stubCloser) Close() error {
	s.closed = true
	return s.err
}

func TestDeferClose_NilCloser(t *testing.T) {
	var buf bytes.Buffer
	DeferClose(zerolog.New(&buf), nil, "ignored")
	assert.Zero(t, buf.Len())
}

func TestDeferClose_Success(t *testing.T) {
	var buf bytes.Buffer
	closer := &stubCloser{}

	DeferClose(zerolog.New(&buf), closer, "close failed")

	assert.True(t, closer.closed)
	assert.Zero(t, buf.Len(), "successful close should not log")
}

func TestDeferClose_Failure(t *testing.T) {
	var buf bytes.Buffer
	closer := &stubCloser{err: errors.New("device busy")}

	DeferClose(zerolog.New(&buf), closer, "close failed")

	assert.True(t, closer.closed)
	assert.Contains(t, buf.String(), "close failed")
	assert.Contains(t, buf.String(), "device busy")
}

package utilities

import (
	"strings"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.NotEqual(t, a, b)
	_, err := ksuid.Parse(a)
	require.NoError(t, err)
}

func TestRequestIDOrNew(t *testing.T) {
	assert.Equal(t, "abc-123", RequestIDOrNew(" abc-123 "))

	for _, bad := range []string{"", "has space", strings.Repeat("x", maxRequestIDLen+1), "tab\there"} {
		got := RequestIDOrNew(bad)
		assert.NotEqual(t, bad, got)
		_, err := ksuid.Parse(got)
		assert.NoError(t, err, bad)
	}
}

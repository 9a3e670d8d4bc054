package utilities

import (
	"strings"

	"github.com/segmentio/ksuid"
)

// maxRequestIDLen bounds caller-supplied request ids echoed into logs and headers.
const maxRequestIDLen = 64

// NewRequestID generates a new globally unique, time-sortable request id.
func NewRequestID() string {
	return ksuid.New().String()
}

// RequestIDOrNew returns the caller-supplied id when it is usable, otherwise a new one.
func RequestIDOrNew(inbound string) string {
	inbound = strings.TrimSpace(inbound)
	if inbound == "" || len(inbound) > maxRequestIDLen {
		return NewRequestID()
	}
	for _, r := range inbound {
		if r < 0x21 || r > 0x7e {
			return NewRequestID()
		}
	}
	return inbound
}

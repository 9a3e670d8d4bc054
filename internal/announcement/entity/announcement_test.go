package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	expire := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	a := &Announcement{DateExpire: &expire}

	assert.False(t, a.IsExpired(time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)))
	assert.False(t, a.IsExpired(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)), "visible through the whole expiry day")
	assert.True(t, a.IsExpired(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))

	assert.False(t, (&Announcement{}).IsExpired(time.Now()), "no expiry date never expires")
}

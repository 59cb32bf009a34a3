package deadline

import (
	"testing"
	"time"

	"peerrent-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDefaults(t *testing.T) {
	p := NewPolicy(Durations{})

	assert.Equal(t, 5*time.Minute, p.Window(domain.EntityTypeContract, StepOtpValidity))
	assert.Equal(t, 48*time.Hour, p.Window(domain.EntityTypeSubOrder, StepOwnerConfirmation))
	assert.Equal(t, 72*time.Hour, p.Window(domain.EntityTypeDispute, StepReceiptUpload))
	assert.Equal(t, 48*time.Hour, p.Window(domain.EntityTypeDispute, StepReceiptConfirmation))
	assert.Equal(t, 48*time.Hour, p.Window(domain.EntityTypeDispute, StepDisputeResponse))
	assert.Equal(t, 7*24*time.Hour, p.Window(domain.EntityTypeDispute, StepDisputeNegotiation))

	// Unknown combinations fall back to the default window.
	assert.Equal(t, DefaultWindow, p.Window(domain.EntityTypeMasterOrder, StepReceiptUpload))
}

func TestPolicyOverrides(t *testing.T) {
	p := NewPolicy(Durations{
		OtpValidity:     10 * time.Minute,
		DisputeResponse: 24 * time.Hour,
	})

	assert.Equal(t, 10*time.Minute, p.Window(domain.EntityTypeContract, StepOtpValidity))
	assert.Equal(t, 24*time.Hour, p.Window(domain.EntityTypeDispute, StepDisputeResponse))
	// Unset fields keep their defaults.
	assert.Equal(t, 72*time.Hour, p.Window(domain.EntityTypeDispute, StepReceiptUpload))
}

func TestPolicyExpiry(t *testing.T) {
	p := NewPolicy(Durations{})
	from := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, from.Add(48*time.Hour), p.Expiry(domain.EntityTypeDispute, StepDisputeResponse, from))
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())
}

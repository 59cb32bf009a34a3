// Package deadline centralizes every time-boxed step of the order and
// dispute workflows in one policy table, so deadline math is never
// recomputed ad hoc at call sites.
package deadline

import (
	"time"

	"peerrent-backend/internal/domain"
)

// Step names one time-boxed step of an entity's workflow.
type Step string

const (
	StepOtpValidity          Step = "OTP_VALIDITY"
	StepOwnerConfirmation    Step = "OWNER_CONFIRMATION"
	StepReceiptUpload        Step = "RECEIPT_UPLOAD"
	StepReceiptConfirmation  Step = "RECEIPT_CONFIRMATION"
	StepDisputeResponse      Step = "DISPUTE_RESPONSE"
	StepDisputeNegotiation   Step = "DISPUTE_NEGOTIATION"
)

type key struct {
	entity domain.EntityType
	step   Step
}

// Policy maps (entity type, step) to the window length. Windows not in the
// table fall back to DefaultWindow.
type Policy struct {
	windows map[key]time.Duration
}

const DefaultWindow = 48 * time.Hour

// Durations configures the policy table; zero values take the defaults
// below.
type Durations struct {
	OtpValidity         time.Duration
	OwnerConfirmation   time.Duration
	ReceiptUpload       time.Duration
	ReceiptConfirmation time.Duration
	DisputeResponse     time.Duration
	DisputeNegotiation  time.Duration
}

func NewPolicy(d Durations) *Policy {
	if d.OtpValidity == 0 {
		d.OtpValidity = 5 * time.Minute
	}
	if d.OwnerConfirmation == 0 {
		d.OwnerConfirmation = 48 * time.Hour
	}
	if d.ReceiptUpload == 0 {
		d.ReceiptUpload = 72 * time.Hour
	}
	if d.ReceiptConfirmation == 0 {
		d.ReceiptConfirmation = 48 * time.Hour
	}
	if d.DisputeResponse == 0 {
		d.DisputeResponse = 48 * time.Hour
	}
	if d.DisputeNegotiation == 0 {
		d.DisputeNegotiation = 7 * 24 * time.Hour
	}
	return &Policy{windows: map[key]time.Duration{
		{domain.EntityTypeContract, StepOtpValidity}:        d.OtpValidity,
		{domain.EntityTypeSubOrder, StepOwnerConfirmation}:  d.OwnerConfirmation,
		{domain.EntityTypeDispute, StepReceiptUpload}:       d.ReceiptUpload,
		{domain.EntityTypeDispute, StepReceiptConfirmation}: d.ReceiptConfirmation,
		{domain.EntityTypeDispute, StepDisputeResponse}:     d.DisputeResponse,
		{domain.EntityTypeDispute, StepDisputeNegotiation}:  d.DisputeNegotiation,
	}}
}

// Window returns the configured window for the step.
func (p *Policy) Window(entity domain.EntityType, step Step) time.Duration {
	if w, ok := p.windows[key{entity, step}]; ok {
		return w
	}
	return DefaultWindow
}

// Expiry computes the absolute deadline for a step starting at from.
func (p *Policy) Expiry(entity domain.EntityType, step Step, from time.Time) time.Time {
	return from.Add(p.Window(entity, step))
}

// Clock abstracts wall-clock time so tests can advance it.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FakeClock is a manually advanced clock for tests.
type FakeClock struct {
	Current time.Time
}

func NewFakeClock(t time.Time) *FakeClock { return &FakeClock{Current: t} }

func (c *FakeClock) Now() time.Time { return c.Current }

// Advance moves the fake clock forward.
func (c *FakeClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }

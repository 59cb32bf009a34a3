package service

import (
	"context"
	"fmt"
	"sync"

	"peerrent-backend/internal/domain"

	"github.com/google/uuid"
)

const (
	GatewayStatusPaid    = "PAID"
	GatewayStatusPending = "PENDING"
)

// mockPaymentGateway simulates the redirect-based gateway in dev and
// tests. A session is PENDING until MarkPaid is called with its ref.
type mockPaymentGateway struct {
	mu       sync.Mutex
	baseURL  string
	sessions map[string]*GatewayPayment
}

func NewMockPaymentGateway(baseURL string) *mockPaymentGateway {
	return &mockPaymentGateway{
		baseURL:  baseURL,
		sessions: make(map[string]*GatewayPayment),
	}
}

func (g *mockPaymentGateway) CreateSession(ctx context.Context, amount int64, metadata map[string]string) (string, error) {
	if amount <= 0 {
		return "", domain.ValidationError("gateway session amount must be positive")
	}
	ref := uuid.NewString()
	g.mu.Lock()
	g.sessions[ref] = &GatewayPayment{Status: GatewayStatusPending, Amount: amount}
	g.mu.Unlock()
	return fmt.Sprintf("%s/checkout/%s", g.baseURL, ref), nil
}

func (g *mockPaymentGateway) Verify(ctx context.Context, transactionRef string) (*GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.sessions[transactionRef]
	if !ok {
		return nil, domain.PaymentError("unknown gateway transaction %s", transactionRef)
	}
	cp := *p
	return &cp, nil
}

// MarkPaid flips a session to PAID, standing in for the gateway webhook.
func (g *mockPaymentGateway) MarkPaid(transactionRef string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.sessions[transactionRef]; ok {
		p.Status = GatewayStatusPaid
	}
}

package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MockGateway implements PaymentGateway for testing and development. It
// plays both sides: Authorize issues a proof the way the real provider's
// client SDK would, Verify checks it the way the provider's server API does.
type MockGateway struct {
	config      *MockGatewayConfig
	proofs      sync.Map // proof token -> *mockAuthorization
	verifyCalls atomic.Int64
}

type mockAuthorization struct {
	amount   int64
	currency string
	txRef    string
}

// MockGatewayConfig holds configuration for the mock gateway
type MockGatewayConfig struct {
	// DelayMs is the simulated provider round trip in milliseconds
	DelayMs int
	// Currency stamped on issued proofs
	Currency string
}

// DefaultMockGatewayConfig returns default configuration
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		DelayMs:  0,
		Currency: "KRW",
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = DefaultMockGatewayConfig()
	}
	return &MockGateway{config: config}
}

// Authorize issues a proof token for the given amount, standing in for the
// client-side payment flow
func (g *MockGateway) Authorize(amount int64) string {
	token := fmt.Sprintf("mock_proof_%s", uuid.New().String()[:8])
	g.proofs.Store(token, &mockAuthorization{
		amount:   amount,
		currency: g.config.Currency,
		txRef:    fmt.Sprintf("mock_txn_%s", uuid.New().String()[:8]),
	})
	return token
}

// Verify checks a proof token issued by Authorize
func (g *MockGateway) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	g.verifyCalls.Add(1)
	if req == nil || req.ProofToken == "" {
		return nil, fmt.Errorf("verify request requires a proof token")
	}

	if g.config.DelayMs > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		}
	}

	value, exists := g.proofs.Load(req.ProofToken)
	if !exists {
		return &VerifyResult{
			Verified:      false,
			FailureReason: "unknown_proof",
		}, nil
	}

	auth := value.(*mockAuthorization)
	return &VerifyResult{
		Verified:       true,
		TransactionRef: auth.txRef,
		Amount:         auth.amount,
		Currency:       auth.currency,
	}, nil
}

// VerifyCalls reports how many times Verify has been invoked. Replayed
// settlements answer from the stored payment and never reach the gateway,
// which this counter makes observable.
func (g *MockGateway) VerifyCalls() int64 {
	return g.verifyCalls.Load()
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}

// Ensure MockGateway implements PaymentGateway
var _ PaymentGateway = (*MockGateway)(nil)

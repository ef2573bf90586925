package gateway

import "context"

// PaymentGateway defines the interface to the external payment provider.
// Settlement never charges here; the client already paid through the
// provider and hands over a proof, which we verify before committing.
type PaymentGateway interface {
	// Verify checks a payment proof with the provider and reports the
	// amount actually captured
	Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error)

	// Name returns the gateway name
	Name() string
}

// VerifyRequest represents a proof verification request
type VerifyRequest struct {
	// ProofToken is the provider-issued token the client presented
	ProofToken string
	// ExpectedAmount is the payable amount of the fare snapshot, integer KRW
	ExpectedAmount int64
	Currency       string
	Metadata       map[string]string
}

// VerifyResult represents the provider's answer
type VerifyResult struct {
	Verified bool
	// TransactionRef is the provider's reference for the captured payment
	TransactionRef string
	// Amount actually captured by the provider, integer KRW
	Amount        int64
	Currency      string
	FailureReason string
}

// Config holds common gateway configuration
type Config struct {
	APIKey      string
	SecretKey   string
	Environment string // "test" or "live"
}

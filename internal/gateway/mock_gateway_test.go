package gateway

import (
	"context"
	"testing"
)

func TestMockGateway_Verify(t *testing.T) {
	ctx := context.Background()
	gw := NewMockGateway(nil)

	proof := gw.Authorize(54800)

	result, err := gw.Verify(ctx, &VerifyRequest{ProofToken: proof, ExpectedAmount: 54800})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Verified {
		t.Fatal("Expected proof to verify")
	}
	if result.Amount != 54800 {
		t.Errorf("Expected amount 54800, got %d", result.Amount)
	}
	if result.TransactionRef == "" {
		t.Error("Expected a transaction reference")
	}

	// Verify is a read; the same proof reports the same capture again
	again, err := gw.Verify(ctx, &VerifyRequest{ProofToken: proof, ExpectedAmount: 54800})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if again.TransactionRef != result.TransactionRef {
		t.Error("Expected a stable transaction reference")
	}
}

func TestMockGateway_Verify_UnknownProof(t *testing.T) {
	ctx := context.Background()
	gw := NewMockGateway(nil)

	result, err := gw.Verify(ctx, &VerifyRequest{ProofToken: "bogus", ExpectedAmount: 100})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Verified {
		t.Error("Unknown proof must not verify")
	}
	if result.FailureReason == "" {
		t.Error("Expected a failure reason")
	}
}

func TestMockGateway_Verify_MissingToken(t *testing.T) {
	gw := NewMockGateway(nil)
	if _, err := gw.Verify(context.Background(), &VerifyRequest{}); err == nil {
		t.Error("Expected error for a missing proof token")
	}
}

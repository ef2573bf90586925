package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewCalcSession(t *testing.T) {
	tests := []struct {
		name    string
		fare    FareSnapshot
		wantErr bool
	}{
		{
			name: "valid fare",
			fare: FareSnapshot{BaseFare: 59800, MileageDeducted: 5000, Payable: 54800},
		},
		{
			name: "no mileage",
			fare: FareSnapshot{BaseFare: 59800, Payable: 59800},
		},
		{
			name:    "payable does not balance",
			fare:    FareSnapshot{BaseFare: 59800, MileageDeducted: 5000, Payable: 59800},
			wantErr: true,
		},
		{
			name:    "negative deduction",
			fare:    FareSnapshot{BaseFare: 59800, MileageDeducted: -100, Payable: 59900},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewCalcSession("resv-1", tt.fare, 5*time.Minute)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFare) {
					t.Errorf("Expected ErrInvalidFare, got %v", err)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if s.ID == "" {
				t.Error("Expected session ID to be set")
			}
			if s.Consumed {
				t.Error("New session must not be consumed")
			}
		})
	}
}

func TestCalcSession_Consume(t *testing.T) {
	s, _ := NewCalcSession("resv-1", FareSnapshot{BaseFare: 59800, Payable: 59800}, 5*time.Minute)

	if err := s.Consume(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !s.Consumed || s.ConsumedAt == nil {
		t.Error("Expected session to be marked consumed")
	}

	// Strictly one-shot
	if err := s.Consume(); !errors.Is(err, ErrSessionConsumed) {
		t.Errorf("Expected ErrSessionConsumed, got %v", err)
	}
}

func TestCalcSession_Consume_Expired(t *testing.T) {
	s, _ := NewCalcSession("resv-1", FareSnapshot{BaseFare: 59800, Payable: 59800}, -time.Second)

	if !s.IsExpired() {
		t.Fatal("Expected session to be expired")
	}
	if err := s.Consume(); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
	if s.Consumed {
		t.Error("Expired session must not be marked consumed")
	}
}

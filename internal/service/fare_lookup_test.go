package service

import (
	"context"
	"testing"

	"github.com/goorm-sudo/raillo-backend-sub002/internal/domain"
)

func TestStaticFareLookup_BaseFare(t *testing.T) {
	tests := []struct {
		name      string
		class     domain.SeatClass
		passenger domain.PassengerType
		expected  int64
	}{
		{"standard adult", domain.SeatClassStandard, domain.PassengerTypeAdult, 59800},
		{"standard child half price", domain.SeatClassStandard, domain.PassengerTypeChild, 29900},
		{"standard senior rounds down", domain.SeatClassStandard, domain.PassengerTypeSenior, 41800},
		{"first class adult", domain.SeatClassFirst, domain.PassengerTypeAdult, 86700},
		{"first class child", domain.SeatClassFirst, domain.PassengerTypeChild, 43300},
		{"first class senior", domain.SeatClassFirst, domain.PassengerTypeSenior, 60600},
	}

	lookup := NewStaticFareLookup(59800)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fare, err := lookup.BaseFare(context.Background(), "dep-100", tt.class, tt.passenger)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if fare != tt.expected {
				t.Errorf("Expected fare %d, got %d", tt.expected, fare)
			}
		})
	}
}

func TestStaticFareLookup_PerDepartureOverride(t *testing.T) {
	lookup := NewStaticFareLookup(59800)
	lookup.SetFare("dep-200", 23700)

	fare, err := lookup.BaseFare(context.Background(), "dep-200", domain.SeatClassStandard, domain.PassengerTypeAdult)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fare != 23700 {
		t.Errorf("Expected overridden fare 23700, got %d", fare)
	}

	fare, err = lookup.BaseFare(context.Background(), "dep-999", domain.SeatClassStandard, domain.PassengerTypeAdult)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fare != 59800 {
		t.Errorf("Expected default fare 59800, got %d", fare)
	}
}

func TestStaticFareLookup_InvalidPassenger(t *testing.T) {
	lookup := NewStaticFareLookup(59800)
	if _, err := lookup.BaseFare(context.Background(), "dep-100", domain.SeatClassStandard, domain.PassengerType("pet")); err != domain.ErrInvalidPassengerType {
		t.Errorf("Expected ErrInvalidPassengerType, got %v", err)
	}
}

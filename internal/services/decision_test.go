package services

import (
	"strings"
	"testing"
)

func TestSimulatedDeciderAllowList(t *testing.T) {
	// Allow-listed cards approve even at a zero success rate.
	d := NewSimulatedDecider(0)
	if !d.Approve("4111111111111111") {
		t.Errorf("allow-listed card declined")
	}
	if !d.Approve("4111 1111 1111 1111") {
		t.Errorf("allow-listed card with spaces declined")
	}
}

func TestSimulatedDeciderDenyList(t *testing.T) {
	// Deny-listed cards decline even at a full success rate.
	d := NewSimulatedDecider(100)
	for _, number := range []string{"4000000000000002", "5555555555554444"} {
		if d.Approve(number) {
			t.Errorf("deny-listed card %s approved", number)
		}
	}
}

func TestSimulatedDeciderRateExtremes(t *testing.T) {
	other := "378282246310005"

	always := NewSimulatedDecider(100)
	never := NewSimulatedDecider(0)
	for i := 0; i < 50; i++ {
		if !always.Approve(other) {
			t.Fatalf("rate 100 declined a regular card")
		}
		if never.Approve(other) {
			t.Fatalf("rate 0 approved a regular card")
		}
	}
}

func TestSimulatedDeciderOutOfRangeRateFallsBack(t *testing.T) {
	for _, rate := range []int{-1, 101, 500} {
		d := NewSimulatedDecider(rate)
		if d.successRate != defaultSuccessRate {
			t.Errorf("NewSimulatedDecider(%d) rate = %d, want %d", rate, d.successRate, defaultSuccessRate)
		}
	}
}

func TestGenerateReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref := GenerateReference()
		if !strings.HasPrefix(ref, "pay_") {
			t.Fatalf("reference %q missing pay_ prefix", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
	}
}

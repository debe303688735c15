package services

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// AuthorizationDecider decides whether a submitted card charge is accepted.
// Implementations must be safe for concurrent use. Swapping in a real
// processor client does not change the caller contract.
type AuthorizationDecider interface {
	Approve(cardNumber string) bool
}

const defaultSuccessRate = 80

// Test card lists checked before the probabilistic decision.
var (
	alwaysApproved = map[string]bool{
		"4111111111111111": true,
	}
	alwaysDeclined = map[string]bool{
		"4000000000000002": true,
		"5555555555554444": true,
	}
)

// SimulatedDecider approves a fixed allow-list, declines a fixed deny-list,
// and otherwise approves with a configurable success percentage.
type SimulatedDecider struct {
	successRate int
}

// NewSimulatedDecider builds a decider with the given success percentage.
// Out-of-range values fall back to the default of 80.
func NewSimulatedDecider(successRate int) *SimulatedDecider {
	if successRate < 0 || successRate > 100 {
		successRate = defaultSuccessRate
	}
	return &SimulatedDecider{successRate: successRate}
}

// Approve implements AuthorizationDecider.
func (d *SimulatedDecider) Approve(cardNumber string) bool {
	number := strings.Join(strings.Fields(cardNumber), "")

	if alwaysApproved[number] {
		return true
	}
	if alwaysDeclined[number] {
		return false
	}

	return rand.Intn(100) < d.successRate
}

const referenceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateReference builds a transaction reference from the current time in
// base36 plus a random suffix. Unique per payment without a central sequence;
// the collision window is a single millisecond.
func GenerateReference() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = referenceAlphabet[rand.Intn(len(referenceAlphabet))]
	}

	return "pay_" + ts + string(suffix)
}

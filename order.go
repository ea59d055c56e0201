package chunkdata

import (
	"fmt"
	"strings"
)

// Order decides the order in which managers are laid out in the chunk packet
// and invoked by every orchestrator.
type Order int

const (
	// OrderRegistration lays managers out in the order they were registered.
	// Sender and receiver must register managers in the same order.
	OrderRegistration Order = iota

	// OrderCanonical lays managers out sorted by domain, then id, so that the
	// layout does not depend on extension load order.
	OrderCanonical
)

// String returns the string representation of the order.
func (o Order) String() string {
	switch o {
	case OrderRegistration:
		return "registration"
	case OrderCanonical:
		return "canonical"
	default:
		return "unknown"
	}
}

// ParseOrder parses the string representation of an order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "registration":
		return OrderRegistration, nil
	case "canonical":
		return OrderCanonical, nil
	default:
		return 0, fmt.Errorf("chunkdata: unknown layout order %q", s)
	}
}

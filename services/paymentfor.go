package services

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

const (
	ActionPost     = "post"
	ActionPremium  = "premium"
	ActionSalonTop = "salontop"
)

var paymentForPattern = regexp.MustCompile(`^(post|premium|salontop)_([0-9a-f-]{36})_(\d+)$`)

// PaymentFor is the parsed entitlement key "<action>_<entityId>_<quantity>".
type PaymentFor struct {
	Action   string
	EntityID uuid.UUID
	Quantity int
}

func (p PaymentFor) String() string {
	return fmt.Sprintf("%s_%s_%d", p.Action, p.EntityID, p.Quantity)
}

func ParsePaymentFor(s string) (PaymentFor, error) {
	m := paymentForPattern.FindStringSubmatch(s)
	if m == nil {
		return PaymentFor{}, fmt.Errorf("malformed payment key %q", s)
	}
	id, err := uuid.Parse(m[2])
	if err != nil {
		return PaymentFor{}, fmt.Errorf("malformed entity id in %q: %w", s, err)
	}
	qty, err := strconv.Atoi(m[3])
	if err != nil || qty <= 0 {
		return PaymentFor{}, fmt.Errorf("invalid quantity in %q", s)
	}
	return PaymentFor{Action: m[1], EntityID: id, Quantity: qty}, nil
}

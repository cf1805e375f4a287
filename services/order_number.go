package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
)

const orderNumberPrefix = "ORD"

// OrderNumberGenerator builds numbers like ORD-20260315-0942-7F3A9C. The
// unique index on orders.order_number is the final guard; callers retry on a
// duplicate insert and share the attempt budget through Next.
type OrderNumberGenerator struct {
	maxAttempts int
	now         func() time.Time
	suffix      func() string
}

func NewOrderNumberGenerator(maxAttempts int) *OrderNumberGenerator {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &OrderNumberGenerator{
		maxAttempts: maxAttempts,
		now:         time.Now,
		suffix:      randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func (g *OrderNumberGenerator) Candidate() string {
	return orderNumberPrefix + "-" + g.now().UTC().Format("20060102-1504") + "-" + g.suffix()
}

func (g *OrderNumberGenerator) MaxAttempts() int { return g.maxAttempts }

// Next returns a candidate that exists reports as free. used counts attempts
// across calls; once it reaches the bound Next fails with
// ErrNumberGenerationExhausted.
func (g *OrderNumberGenerator) Next(ctx context.Context, used *int, exists func(context.Context, string) (bool, error)) (string, error) {
	if used == nil {
		used = new(int)
	}
	for *used < g.maxAttempts {
		*used++
		candidate := g.Candidate()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", apperrors.Internal("Failed to check order number", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.ErrNumberGenerationExhausted
}

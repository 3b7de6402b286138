// Package challenge enforces single-use presentation challenges. A
// challenge that was already consumed by a verification must never pass a
// second one, which is what makes a captured presentation unreplayable.
package challenge

import (
	"context"
	"time"
)

// Store is the single-use challenge ledger.
type Store interface {
	// Consume marks a challenge as used for the retention window. Returns
	// sentinel.ErrAlreadyUsed when the challenge was consumed before.
	Consume(ctx context.Context, challenge string, retention time.Duration) error
}

// Package debtlock serialises mutations of a single debt's paid amount.
package debtlock

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrDebtBusy = errors.New("debt_busy")

// Release gives the lock back. It is safe to call more than once.
type Release func()

// Locker grants exclusive access to one debt at a time.
type Locker interface {
	Lock(ctx context.Context, debtID snowflake.ID) (Release, error)
}

func key(debtID snowflake.ID) string {
	return "backoffice:debt-lock:" + debtID.String()
}

package market

import "time"

// DefaultStartingBalance is the cash a newly opened account receives.
const DefaultStartingBalance = 10000.0

// Account holds a user's cash.
type Account struct {
	UserID    int64
	Username  string
	Balance   float64
	CreatedAt time.Time
}

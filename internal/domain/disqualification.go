package domain

import "time"

// Disqualification reasons.
const (
	DisqualReasonWinner       = "WINNER_COOLDOWN"
	DisqualReasonWashTransfer = "WASH_TRANSFER"
	DisqualReasonManual       = "MANUAL"
)

// DisqualificationWindow is a temporary, wall-clock-bounded eligibility
// ban independent of the cycle counter. Expired windows are swept at the
// start of every cycle evaluation.
// Corresponds to disqualification_windows table in PostgreSQL.
type DisqualificationWindow struct {
	Wallet    string
	Reason    string
	ExpiresAt time.Time
}

// Active reports whether the window covers the given instant.
func (w *DisqualificationWindow) Active(now time.Time) bool {
	return now.Before(w.ExpiresAt)
}

package game

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidColor         = errors.New("invalid color")
	ErrSessionLimitExceeded = errors.New("session betting limit exceeded")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrRoundClosed          = errors.New("betting is closed")
	ErrRoundAlreadyOpen     = errors.New("betting is already open")
	ErrNoActiveWager        = errors.New("no active wager")
	ErrNotFound             = errors.New("not found")
	ErrInvalidDraw          = errors.New("invalid draw")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTimeout              = errors.New("request timed out")
	ErrNoWagers             = errors.New("no wagers to resolve")
	ErrInvalidAccount       = errors.New("invalid account")
)

// CodeInternal is reported for errors outside the game's own error kinds.
const CodeInternal = "internal"

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidColor, "invalid_color"},
	{ErrSessionLimitExceeded, "session_limit_exceeded"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrRoundClosed, "round_closed"},
	{ErrRoundAlreadyOpen, "round_already_open"},
	{ErrNoActiveWager, "no_active_wager"},
	{ErrNotFound, "not_found"},
	{ErrInvalidDraw, "invalid_draw"},
	{ErrUnauthorized, "unauthorized"},
	{ErrTimeout, "timeout"},
	{ErrNoWagers, "no_wagers"},
	{ErrInvalidAccount, "invalid_account"},
}

// Code returns the stable machine-readable code for err, unwrapping as needed.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

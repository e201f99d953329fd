package wallet

import "time"

// Balance is a member's spendable coins plus the coins held by open wagers.
type Balance struct {
	Account string    `json:"account"`
	Amount  int64     `json:"balance"`
	Held    int64     `json:"held"`
	AsOf    time.Time `json:"as_of"`
}

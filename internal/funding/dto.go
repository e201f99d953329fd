package funding

// WithdrawRequest asks to take coins out of the game.
type WithdrawRequest struct {
	Amount int64 `json:"amount"`
}

// RedeemRequest asks to exchange coins for a catalog reward.
type RedeemRequest struct {
	Reward   string `json:"reward"`
	Quantity int64  `json:"quantity"`
}

// RewardResponse is one catalog entry.
type RewardResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Cost int64  `json:"cost"`
}

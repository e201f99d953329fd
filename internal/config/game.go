package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pesocoin/colorgame/internal/game"
)

// Reward is a redeemable catalog entry.
type Reward struct {
	Key  string `toml:"key"`
	Name string `toml:"name"`
	Cost int64  `toml:"cost"`
}

// Game holds the tunable rules of the color game.
type Game struct {
	WagerCap      int64
	SessionCap    int64
	BettingTimer  time.Duration
	CountdownTick time.Duration
	Colors        []string
	Rewards       []Reward
}

// DefaultGame returns the stock rules.
func DefaultGame() Game {
	return Game{
		WagerCap:      500,
		SessionCap:    500,
		BettingTimer:  30 * time.Second,
		CountdownTick: 5 * time.Second,
		Colors:        defaultColors(),
		Rewards: []Reward{
			{Key: "nitro", Name: "Discord Nitro", Cost: 500},
			{Key: "steam", Name: "Steam Gift Card", Cost: 1},
			{Key: "gcash", Name: "GCash Credit", Cost: 1},
		},
	}
}

func defaultColors() []string {
	out := make([]string, len(game.DefaultColors))
	for i, c := range game.DefaultColors {
		out[i] = string(c)
	}
	return out
}

type gameFile struct {
	WagerCap      *int64   `toml:"wager_cap"`
	SessionCap    *int64   `toml:"session_cap"`
	BettingTimer  string   `toml:"betting_timer"`
	CountdownTick string   `toml:"countdown_tick"`
	Colors        []string `toml:"colors"`
	Rewards       []Reward `toml:"rewards"`
}

// LoadGameFile overlays the TOML file at path on base. Keys missing from the
// file keep their base value.
func LoadGameFile(path string, base Game) (Game, error) {
	var f gameFile
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return Game{}, fmt.Errorf("decode game config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Game{}, fmt.Errorf("game config %s: unknown keys %v", path, undecoded)
	}

	g := base
	if f.WagerCap != nil {
		g.WagerCap = *f.WagerCap
	}
	if f.SessionCap != nil {
		g.SessionCap = *f.SessionCap
	}
	if f.BettingTimer != "" {
		if g.BettingTimer, err = time.ParseDuration(f.BettingTimer); err != nil {
			return Game{}, fmt.Errorf("game config betting_timer: %w", err)
		}
	}
	if f.CountdownTick != "" {
		if g.CountdownTick, err = time.ParseDuration(f.CountdownTick); err != nil {
			return Game{}, fmt.Errorf("game config countdown_tick: %w", err)
		}
	}
	if len(f.Colors) > 0 {
		g.Colors = f.Colors
	}
	if len(f.Rewards) > 0 {
		g.Rewards = f.Rewards
	}
	return g, nil
}

func (g *Game) applyEnv() error {
	var err error
	if g.WagerCap, err = getInt64("WAGER_CAP", g.WagerCap); err != nil {
		return err
	}
	if g.SessionCap, err = getInt64("SESSION_CAP", g.SessionCap); err != nil {
		return err
	}
	if g.BettingTimer, err = getDuration("BETTING_TIMER", g.BettingTimer); err != nil {
		return err
	}
	if g.CountdownTick, err = getDuration("COUNTDOWN_TICK", g.CountdownTick); err != nil {
		return err
	}
	return nil
}

// Validate checks the rules are playable.
func (g Game) Validate() error {
	if g.WagerCap < 1 || g.SessionCap < 1 {
		return errors.New("wager and session caps must be at least 1")
	}
	if g.BettingTimer < time.Second {
		return errors.New("betting timer must be at least 1s")
	}
	if g.CountdownTick <= 0 {
		return errors.New("countdown tick must be positive")
	}
	if len(g.Colors) == 0 {
		return errors.New("at least one color is required")
	}
	seen := make(map[string]bool, len(g.Rewards))
	for _, r := range g.Rewards {
		key := strings.ToLower(strings.TrimSpace(r.Key))
		if key == "" || r.Cost < 1 {
			return fmt.Errorf("reward %q needs a key and a positive cost", r.Key)
		}
		if seen[key] {
			return fmt.Errorf("duplicate reward %q", key)
		}
		seen[key] = true
	}
	return nil
}

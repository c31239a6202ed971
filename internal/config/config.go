// Package config holds the tunable timings and limits of a game session,
// loadable from the environment with sane defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the knobs a session runs with. Durations are expressed
// in milliseconds in the environment.
type Config struct {
	// PollInterval is how often Tick should be driven.
	PollInterval time.Duration

	// MaxSeats caps the table size; empty seats are filled with bots when
	// the game starts.
	MaxSeats int

	// BotBaseDelay and BotJitter shape the pause before a bot marks
	// itself ready after a deal.
	BotBaseDelay time.Duration
	BotJitter    time.Duration

	// BotBidDelay and BotTurnDelay pace bot bids and card plays so they
	// read as deliberate rather than instantaneous.
	BotBidDelay  time.Duration
	BotTurnDelay time.Duration

	// DealGraceDelay is the pause between dealing and the start of
	// bidding, giving every participant time to replicate the new hands.
	DealGraceDelay time.Duration

	// TrickSettleDelay keeps a completed trick on the table before it is
	// cleared, so the winning card can be seen.
	TrickSettleDelay time.Duration

	// SummaryDelay is the pause between the last trick of a round and the
	// round summary opening.
	SummaryDelay time.Duration
}

// Default returns the standard timings.
func Default() Config {
	return Config{
		PollInterval:     100 * time.Millisecond,
		MaxSeats:         4,
		BotBaseDelay:     500 * time.Millisecond,
		BotJitter:        400 * time.Millisecond,
		BotBidDelay:      200 * time.Millisecond,
		BotTurnDelay:     500 * time.Millisecond,
		DealGraceDelay:   2000 * time.Millisecond,
		TrickSettleDelay: 1700 * time.Millisecond,
		SummaryDelay:     1600 * time.Millisecond,
	}
}

// Load reads a .env file if present, then applies OHHELL_* environment
// overrides on top of the defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	var err error
	if err = overrideMillis(&cfg.PollInterval, "OHHELL_POLL_MS"); err != nil {
		return cfg, err
	}
	if err = overrideInt(&cfg.MaxSeats, "OHHELL_MAX_SEATS"); err != nil {
		return cfg, err
	}
	if err = overrideMillis(&cfg.BotBaseDelay, "OHHELL_BOT_BASE_DELAY_MS"); err != nil {
		return cfg, err
	}
	if err = overrideMillis(&cfg.BotJitter, "OHHELL_BOT_JITTER_MS"); err != nil {
		return cfg, err
	}
	if err = overrideMillis(&cfg.BotBidDelay, "OHHELL_BOT_BID_DELAY_MS"); err != nil {
		return cfg, err
	}
	if err = overrideMillis(&cfg.BotTurnDelay, "OHHELL_BOT_TURN_DELAY_MS"); err != nil {
		return cfg, err
	}
	if err = overrideMillis(&cfg.DealGraceDelay, "OHHELL_DEAL_GRACE_MS"); err != nil {
		return cfg, err
	}
	if err = overrideMillis(&cfg.TrickSettleDelay, "OHHELL_TRICK_SETTLE_MS"); err != nil {
		return cfg, err
	}
	if err = overrideMillis(&cfg.SummaryDelay, "OHHELL_SUMMARY_DELAY_MS"); err != nil {
		return cfg, err
	}
	if cfg.MaxSeats < 2 {
		return cfg, fmt.Errorf("OHHELL_MAX_SEATS must be at least 2, got %d", cfg.MaxSeats)
	}
	return cfg, nil
}

func overrideMillis(dst *time.Duration, name string) error {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		return fmt.Errorf("%s: expected non-negative milliseconds, got %q", name, raw)
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}

func overrideInt(dst *int, name string) error {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: expected an integer, got %q", name, raw)
	}
	*dst = n
	return nil
}

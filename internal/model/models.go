// Package model defines the data models for the Hiwa mines bot.
package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// GridSize is the number of cells on a mines board (5x5).
const GridSize = 25

// Cell is a single board cell, either a gem or a mine.
type Cell uint8

// Cell kinds.
const (
	Gem Cell = iota
	Mine
)

// Legacy data files store cells as the emoji the bot renders in chat.
// The codec keeps those files loadable and writes the same representation.
const (
	gemJSON  = "💎"
	mineJSON = "💣"
)

// MarshalJSON encodes the cell in the legacy on-disk representation.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c {
	case Gem:
		return json.Marshal(gemJSON)
	case Mine:
		return json.Marshal(mineJSON)
	}
	return nil, fmt.Errorf("unknown cell kind %d", c)
}

// UnmarshalJSON accepts both the legacy emoji and plain "gem"/"mine" strings.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case gemJSON, "gem":
		*c = Gem
	case mineJSON, "mine":
		*c = Mine
	default:
		return fmt.Errorf("unknown cell kind %q", s)
	}
	return nil
}

func (c Cell) String() string {
	if c == Mine {
		return "mine"
	}
	return "gem"
}

// Grid is the fixed 25-cell board of one game. Immutable after creation.
type Grid [GridSize]Cell

// MineCount returns the number of mines on the grid.
func (g Grid) MineCount() int {
	n := 0
	for _, c := range g {
		if c == Mine {
			n++
		}
	}
	return n
}

// Game is an in-progress wager, owned exclusively by one account.
// The bet is already debited from the balance when the game exists.
type Game struct {
	Bet      int64 `json:"bet"`
	Mines    int   `json:"mines"`
	Grid     Grid  `json:"grid"`
	Revealed []int `json:"revealed"`
}

// IsRevealed reports whether the tile index has already been revealed.
func (g *Game) IsRevealed(index int) bool {
	return slices.Contains(g.Revealed, index)
}

// GemCount returns the number of gems revealed so far.
func (g *Game) GemCount() int {
	return len(g.Revealed)
}

// Clone returns a deep copy of the game.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Revealed = slices.Clone(g.Revealed)
	return &cp
}

// Account is one user's durable state: balance, bonus cooldowns and the
// optional active game.
type Account struct {
	UserID     int64  `json:"-"`
	Username   string `json:"username"`
	Balance    int64  `json:"balance"`
	Game       *Game  `json:"game"`
	LastDaily  int64  `json:"last_daily"`
	LastWeekly int64  `json:"last_weekly"`
}

// UnmarshalJSON decodes an account record. Legacy data files hold bonus
// timestamps as fractional epoch seconds; both forms are accepted and
// truncated to whole seconds.
func (a *Account) UnmarshalJSON(data []byte) error {
	type alias Account
	aux := struct {
		LastDaily  json.Number `json:"last_daily"`
		LastWeekly json.Number `json:"last_weekly"`
		*alias
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if a.LastDaily, err = unixSeconds(aux.LastDaily); err != nil {
		return fmt.Errorf("invalid last_daily: %w", err)
	}
	if a.LastWeekly, err = unixSeconds(aux.LastWeekly); err != nil {
		return fmt.Errorf("invalid last_weekly: %w", err)
	}
	return nil
}

func unixSeconds(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if sec, err := n.Int64(); err == nil {
		return sec, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Game = a.Game.Clone()
	return &cp
}

// HasGame reports whether the account has an active game.
func (a *Account) HasGame() bool {
	return a.Game != nil
}

// Ledger entry kinds for categorizing balance changes.
const (
	TxTypeInitial  = "initial"   // starting grant on registration
	TxTypeBet      = "bet"       // mines bet placement
	TxTypeCashout  = "cashout"   // mines cashout payout
	TxTypeDaily    = "daily"     // daily bonus claim
	TxTypeWeekly   = "weekly"    // weekly bonus claim
	TxTypeGift     = "gift"      // peer-to-peer gift
	TxTypeAdminSet = "admin_set" // admin balance override
	TxTypeAdminAdd = "admin_add" // admin balance top-up
)

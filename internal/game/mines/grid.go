// Package mines implements the grid-reveal wagering game: a 25-cell board
// seeded with hidden mines, revealed tile by tile until the player cashes
// out or hits a mine.
package mines

import (
	"math/rand/v2"

	"hiwa-mines-bot/internal/model"
)

const (
	// MinMines and MaxMines bound the mine count of a board.
	MinMines = 3
	MaxMines = 24

	// MinReveals is the number of gems required before cashing out.
	MinReveals = 2

	// GemBonus is the flat payout per revealed gem.
	GemBonus = 10
)

// NewGrid builds a board with mineCount mines at distinct positions chosen
// uniformly at random; every placement of C(25, mineCount) is equally likely.
func NewGrid(mineCount int) model.Grid {
	var g model.Grid
	for _, i := range rand.Perm(model.GridSize)[:mineCount] {
		g[i] = model.Mine
	}
	return g
}

// Payout computes the cashout reward: the bet back plus a flat bonus per
// revealed gem.
func Payout(bet int64, gems int) int64 {
	return bet + int64(gems)*GemBonus
}

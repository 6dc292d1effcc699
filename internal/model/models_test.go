package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell_JSONRoundtrip(t *testing.T) {
	data, err := json.Marshal([]Cell{Gem, Mine})
	require.NoError(t, err)
	assert.JSONEq(t, `["💎","💣"]`, string(data))

	var cells []Cell
	require.NoError(t, json.Unmarshal(data, &cells))
	assert.Equal(t, []Cell{Gem, Mine}, cells)
}

func TestCell_UnmarshalAcceptsPlainNames(t *testing.T) {
	var cells []Cell
	require.NoError(t, json.Unmarshal([]byte(`["gem","mine"]`), &cells))
	assert.Equal(t, []Cell{Gem, Mine}, cells)

	var c Cell
	assert.Error(t, json.Unmarshal([]byte(`"🎲"`), &c))
	assert.Error(t, json.Unmarshal([]byte(`3`), &c))
}

func TestGame_Clone(t *testing.T) {
	game := &Game{
		Bet:      100,
		Mines:    3,
		Revealed: []int{1, 2},
	}
	game.Grid[5] = Mine

	cp := game.Clone()
	cp.Revealed = append(cp.Revealed, 9)
	cp.Grid[0] = Mine

	assert.Equal(t, []int{1, 2}, game.Revealed)
	assert.Equal(t, Gem, game.Grid[0])

	var nilGame *Game
	assert.Nil(t, nilGame.Clone())
}

func TestAccount_Clone(t *testing.T) {
	acc := &Account{
		UserID:   1,
		Username: "alice",
		Balance:  500,
		Game:     &Game{Bet: 100, Revealed: []int{3}},
	}

	cp := acc.Clone()
	cp.Balance = 0
	cp.Game.Revealed[0] = 7

	assert.Equal(t, int64(500), acc.Balance)
	assert.Equal(t, []int{3}, acc.Game.Revealed)
}

func TestAccount_UnmarshalBonusTimestamps(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantDaily  int64
		wantWeekly int64
	}{
		{"integer seconds", `{"username":"a","balance":1,"last_daily":1700000000,"last_weekly":0}`, 1700000000, 0},
		{"fractional seconds", `{"username":"a","balance":1,"last_daily":1700000000.1234567,"last_weekly":1699000000.75}`, 1700000000, 1699000000},
		{"absent fields", `{"username":"a","balance":1}`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acc Account
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &acc))
			assert.Equal(t, tt.wantDaily, acc.LastDaily)
			assert.Equal(t, tt.wantWeekly, acc.LastWeekly)
		})
	}

	var acc Account
	assert.Error(t, json.Unmarshal([]byte(`{"username":"a","last_daily":"soon"}`), &acc))
}

func TestAccount_JSONOmitsUserID(t *testing.T) {
	acc := &Account{UserID: 42, Username: "alice", Balance: 500}

	data, err := json.Marshal(acc)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotContains(t, doc, "user_id")
	assert.Equal(t, "alice", doc["username"])
}

package main

import (
	"encoding/json"
	"testing"

	"github.com/chess-ranking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRegistrations(t *testing.T) {
	regs, err := generateRegistrations(30, platformBoth)
	require.NoError(t, err)
	require.Len(t, regs, 30)

	assert.Equal(t, "Knight1", *regs[0].ChessComUsername)
	assert.Equal(t, "knight1", *regs[0].LichessUsername)
	assert.Equal(t, "Knight2", *regs[24].ChessComUsername)

	seen := make(map[string]bool)
	for _, r := range regs {
		assert.NotEmpty(t, r.RequestID)
		assert.False(t, seen[r.RequestID])
		seen[r.RequestID] = true
	}
}

func TestGenerateRegistrations_platforms(t *testing.T) {
	regs, err := generateRegistrations(1, platformLichess)
	require.NoError(t, err)
	assert.Nil(t, regs[0].ChessComUsername)
	assert.NotNil(t, regs[0].LichessUsername)

	_, err = generateRegistrations(1, "fide")
	assert.Error(t, err)

	_, err = generateRegistrations(0, platformBoth)
	assert.Error(t, err)
}

func TestToMessages(t *testing.T) {
	regs := []domain.PlayerRegistration{newRegistration(" alice ", "")}
	msgs, err := toMessages("player-registrations", regs)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "player-registrations", msgs[0].Topic)

	raw, err := msgs[0].Value.Encode()
	require.NoError(t, err)

	var decoded domain.PlayerRegistration
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, regs[0].RequestID, decoded.RequestID)
	assert.Equal(t, "alice", *decoded.ChessComUsername)
	assert.Nil(t, decoded.LichessUsername)
}

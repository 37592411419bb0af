package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreatePlayerRequest_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		req      CreatePlayerRequest
		chessCom *string
		lichess  *string
	}{
		{
			name: "both absent",
			req:  CreatePlayerRequest{},
		},
		{
			name:     "trims whitespace",
			req:      CreatePlayerRequest{ChessComUsername: StringPtr("  alice "), LichessUsername: StringPtr("bob\t")},
			chessCom: StringPtr("alice"),
			lichess:  StringPtr("bob"),
		},
		{
			name:    "blank becomes absent",
			req:     CreatePlayerRequest{ChessComUsername: StringPtr("   "), LichessUsername: StringPtr("bob")},
			lichess: StringPtr("bob"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.Normalize()
			assert.Equal(t, tt.chessCom, got.ChessComUsername)
			assert.Equal(t, tt.lichess, got.LichessUsername)
		})
	}
}

func TestCreatePlayerRequest_NormalizeDoesNotMutate(t *testing.T) {
	name := " alice "
	req := CreatePlayerRequest{ChessComUsername: &name}

	req.Normalize()

	assert.Equal(t, " alice ", name)
}

func TestPlayer_DisplayName(t *testing.T) {
	assert.Equal(t, "alice", Player{ChessComUsername: StringPtr("alice"), LichessUsername: StringPtr("al")}.DisplayName())
	assert.Equal(t, "bob", Player{LichessUsername: StringPtr("bob")}.DisplayName())
	assert.Equal(t, "", Player{}.DisplayName())
	assert.False(t, Player{}.HasUsername())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrUsernameRequired))
	assert.True(t, IsClientError(ErrInvalidRequest))
	assert.False(t, IsClientError(ErrStoreUnavailable))
}

package domain

import (
	"strings"
	"time"
)

// DefaultRating is the rating every player starts with. No rating source is
// integrated, so it is also the rating every player keeps.
const DefaultRating = 0

// Player represents a registered chess player
type Player struct {
	ID               int64     `json:"id"`
	ChessComUsername *string   `json:"chess_com_username"`
	LichessUsername  *string   `json:"lichess_username"`
	ChessComRating   float64   `json:"chess_com_rating"`
	LichessRating    float64   `json:"lichess_rating"`
	CreatedAt        time.Time `json:"created_at"`
}

// HasUsername reports whether at least one platform username is set
func (p Player) HasUsername() bool {
	return p.ChessComUsername != nil || p.LichessUsername != nil
}

// DisplayName returns the first known username, or an empty string
func (p Player) DisplayName() string {
	if p.ChessComUsername != nil {
		return *p.ChessComUsername
	}
	if p.LichessUsername != nil {
		return *p.LichessUsername
	}
	return ""
}

// CreatePlayerRequest represents a request to register a player
type CreatePlayerRequest struct {
	ChessComUsername *string `json:"chess_com_username,omitempty"`
	LichessUsername  *string `json:"lichess_username,omitempty"`
}

// Normalize trims both usernames and drops the ones left empty
func (r CreatePlayerRequest) Normalize() CreatePlayerRequest {
	return CreatePlayerRequest{
		ChessComUsername: normalizeUsername(r.ChessComUsername),
		LichessUsername:  normalizeUsername(r.LichessUsername),
	}
}

// HasUsername reports whether at least one username was supplied
func (r CreatePlayerRequest) HasUsername() bool {
	return r.ChessComUsername != nil || r.LichessUsername != nil
}

func normalizeUsername(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

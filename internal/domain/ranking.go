package domain

// RankingEntry is a read-only view of a player with its best rating
type RankingEntry struct {
	Rank       int     `json:"rank"`
	BestRating float64 `json:"best_rating"`
	Player
}

// PlayerRegistration is the message format for registrations arriving over Kafka
type PlayerRegistration struct {
	RequestID        string  `json:"request_id,omitempty"`
	ChessComUsername *string `json:"chess_com_username,omitempty"`
	LichessUsername  *string `json:"lichess_username,omitempty"`
}

// ToRequest converts a registration message into a create request
func (r PlayerRegistration) ToRequest() CreatePlayerRequest {
	return CreatePlayerRequest{
		ChessComUsername: r.ChessComUsername,
		LichessUsername:  r.LichessUsername,
	}
}

// Event types
const (
	EventPlayerCreated = "player_created"
)

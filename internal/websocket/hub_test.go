package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chess-ranking/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, logger, w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_playerCreatedReachesSubscribers(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)

	send(t, conn, ClientMessage{Type: MessageTypeSubscribe, Topic: TopicPlayers})
	ack := read(t, conn)
	assert.Equal(t, "subscribed", ack.Type)
	assert.Equal(t, TopicPlayers, ack.Topic)

	require.Eventually(t, func() bool { return hub.GetSubscriberCount(TopicPlayers) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.GetTotalConnections())

	hub.BroadcastPlayerCreated(domain.Player{ID: 7, ChessComUsername: domain.StringPtr("alice")})

	msg := read(t, conn)
	assert.Equal(t, MessageTypePlayerCreated, msg.Type)
	var p domain.Player
	require.NoError(t, json.Unmarshal(msg.Data, &p))
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "alice", *p.ChessComUsername)
}

func TestHub_rankingsSubscriberGetsSnapshot(t *testing.T) {
	hub, srv := startHub(t)
	hub.SetRankingsSource(func(ctx context.Context) ([]domain.RankingEntry, error) {
		return []domain.RankingEntry{{Rank: 1, Player: domain.Player{ID: 3}}}, nil
	})
	conn := dial(t, srv)

	send(t, conn, ClientMessage{Type: MessageTypeSubscribe, Topic: TopicRankings})
	assert.Equal(t, "subscribed", read(t, conn).Type)

	snapshot := read(t, conn)
	assert.Equal(t, MessageTypeRankingsUpdate, snapshot.Type)
	var update RankingsUpdate
	require.NoError(t, json.Unmarshal(snapshot.Data, &update))
	assert.Equal(t, 1, update.TotalPlayers)
	assert.Equal(t, int64(3), update.Entries[0].ID)

	require.Eventually(t, hub.HasRankingsSubscribers, 2*time.Second, 10*time.Millisecond)
}

func TestHub_unknownTopicAndPing(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)

	send(t, conn, ClientMessage{Type: MessageTypeSubscribe, Topic: "openings"})
	assert.Equal(t, MessageTypeError, read(t, conn).Type)

	send(t, conn, ClientMessage{Type: MessageTypePing})
	assert.Equal(t, MessageTypePong, read(t, conn).Type)

	assert.Equal(t, 0, hub.GetSubscriberCount(TopicPlayers))
	assert.False(t, hub.HasRankingsSubscribers())
}

func TestHub_broadcastSkipsUnsubscribed(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)

	send(t, conn, ClientMessage{Type: MessageTypeSubscribe, Topic: TopicPlayers})
	read(t, conn)
	send(t, conn, ClientMessage{Type: MessageTypeUnsubscribe, Topic: TopicPlayers})
	assert.Equal(t, "unsubscribed", read(t, conn).Type)
	require.Eventually(t, func() bool { return hub.GetSubscriberCount(TopicPlayers) == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastPlayerCreated(domain.Player{ID: 1})
	send(t, conn, ClientMessage{Type: MessageTypePing})

	assert.Equal(t, MessageTypePong, read(t, conn).Type, "no player_created message expected before the pong")
}

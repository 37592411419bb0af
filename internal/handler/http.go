package handler

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/chess-ranking/internal/domain"
	"github.com/chess-ranking/internal/metrics"
	"github.com/chess-ranking/internal/service"
	"github.com/chess-ranking/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/render"
)

//go:embed templates
var templates embed.FS

// WelcomeMessage is returned from the root endpoint
const WelcomeMessage = "Welcome to the chess player ranking API"

const maxBodyBytes = 1 << 20

// Handler provides HTTP handlers for the player API
type Handler struct {
	service *service.PlayerService
	hub     *websocket.Hub
	metrics *metrics.Metrics
	render  *render.Render
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.PlayerService, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		metrics: m,
		render:  newRender(),
		logger:  logger,
	}
}

func newRender() *render.Render {
	return render.New(render.Options{
		Directory:  "templates",
		FileSystem: &render.EmbedFileSystem{FS: templates},
		Funcs: []template.FuncMap{
			{
				"username": usernameOrDash,
			},
		},
	})
}

// APIResponse is the envelope used by operational endpoints and errors
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.metrics.Middleware)
	r.Use(corsMiddleware)

	r.Get("/", h.Root)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.Handle("/metrics", h.metrics.Handler())

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)
	r.Get("/ws/stats", h.GetWebSocketStats)

	// Player routes answer with and without a trailing slash
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		for _, path := range []string{"/players", "/players/"} {
			r.Post(path, h.CreatePlayer)
			r.Get(path, h.ListPlayers)
		}
		for _, path := range []string{"/players/rankings", "/players/rankings/"} {
			r.Get(path, h.GetRankings)
		}
		r.Get("/ui", h.RankingsPage)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := h.render.JSON(w, status, data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeSuccess writes a successful enveloped JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps service errors to a status code
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if domain.IsClientError(err) {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	h.logger.Error(op+" failed",
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
}

// Root returns the greeting
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": WelcomeMessage})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck reports whether the player store is reachable
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrStoreUnavailable)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections":    h.hub.GetTotalConnections(),
		"players_subscribers":  h.hub.GetSubscriberCount(websocket.TopicPlayers),
		"rankings_subscribers": h.hub.GetSubscriberCount(websocket.TopicRankings),
	})
}

// CreatePlayer registers a player from a JSON body
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreatePlayer(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	player, err := h.service.AddPlayer(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "create player", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, player)
}

// ListPlayers returns every player in registration order
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.ListPlayers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list players", err)
		return
	}
	h.writeJSON(w, http.StatusOK, players)
}

// GetRankings returns players ordered by best rating
func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetRankings(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "get rankings", err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// RankingsPage renders the rankings as an HTML table
func (h *Handler) RankingsPage(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetRankings(r.Context())
	if err != nil {
		h.logger.Error("render rankings page failed", "error", err)
		h.render.Text(w, http.StatusInternalServerError, domain.ErrInternalError.Error())
		return
	}
	if err := h.render.HTML(w, http.StatusOK, "rankings", entries); err != nil {
		h.logger.Error("failed to render rankings page", "error", err)
	}
}

// decodeCreatePlayer accepts exactly one JSON object
func decodeCreatePlayer(body io.Reader) (domain.CreatePlayerRequest, error) {
	dec := json.NewDecoder(body)

	var req *domain.CreatePlayerRequest
	if err := dec.Decode(&req); err != nil {
		return domain.CreatePlayerRequest{}, err
	}
	if req == nil {
		return domain.CreatePlayerRequest{}, errors.New("request body is null")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.CreatePlayerRequest{}, errors.New("unexpected data after request body")
	}
	return *req, nil
}

func usernameOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

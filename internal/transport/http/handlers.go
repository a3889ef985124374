package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"trashtalk/internal/domain"
)

const qrSize = 256

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PackInfo describes one card pack for the create screen
type PackInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	CardCount   int    `json:"cardCount"`
	Prompts     int    `json:"prompts"`
	Responses   int    `json:"responses"`
	Default     bool   `json:"default"`
}

// GetRoomResponse is the response for getting room info
type GetRoomResponse struct {
	RoomCode    string             `json:"roomCode"`
	Mode        domain.DisplayMode `json:"mode"`
	State       domain.State       `json:"state"`
	PlayerCount int                `json:"playerCount"`
	MaxPlayers  int                `json:"maxPlayers"`
	Round       int                `json:"round"`
	TotalRounds int                `json:"totalRounds"`
	Packs       []string           `json:"packs"`
	CanJoin     bool               `json:"canJoin"`
	JoinURL     string             `json:"joinUrl"`
}

// RoomExistsResponse is the response for checking if room exists
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveGames    int `json:"activeGames"`
	TotalPlayers   int `json:"totalPlayers"`
	Connections    int `json:"connections"`
	PendingRejoins int `json:"pendingRejoins"`
}

// handlePacks handles GET /api/packs
func (s *Server) handlePacks(w http.ResponseWriter, r *http.Request) {
	packs := make([]PackInfo, 0, len(s.catalog.Order))
	for _, id := range s.catalog.Order {
		p := s.catalog.Packs[id]
		packs = append(packs, PackInfo{
			ID:          id,
			Name:        p.Name,
			Icon:        p.Icon,
			Description: p.Description,
			CardCount:   p.CardCount(),
			Prompts:     len(p.Prompts) + len(p.Prompts2) + len(p.Prompts3),
			Responses:   len(p.Responses),
			Default:     slices.Contains(s.catalog.Default, id),
		})
	}
	s.sendSuccess(w, packs)
}

// handleGetRoom handles GET /api/rooms/{roomCode}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code, ok := s.roomCode(w, r)
	if !ok {
		return
	}

	room, err := s.store.Get(code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	maxPlayers := s.config.Game.MaxPlayers
	s.sendSuccess(w, &GetRoomResponse{
		RoomCode:    room.Code,
		Mode:        room.Mode,
		State:       room.State,
		PlayerCount: len(room.Players),
		MaxPlayers:  maxPlayers,
		Round:       room.Round,
		TotalRounds: room.TotalRounds,
		Packs:       room.Packs,
		CanJoin:     room.State == domain.StateLobby && len(room.Players) < maxPlayers,
		JoinURL:     s.joinURL(r, room.Code),
	})
}

// handleRoomExists handles GET /api/rooms/{roomCode}/exists
func (s *Server) handleRoomExists(w http.ResponseWriter, r *http.Request) {
	code, ok := s.roomCode(w, r)
	if !ok {
		return
	}

	s.sendSuccess(w, &RoomExistsResponse{
		Exists: s.store.Exists(code),
	})
}

// handleRoomQR handles GET /api/rooms/{roomCode}/qr, a PNG the host screen shows for phones to scan
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	code, ok := s.roomCode(w, r)
	if !ok {
		return
	}
	if !s.store.Exists(code) {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}

	png, err := qrcode.Encode(s.joinURL(r, code), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("qr encode failed", "roomCode", code, "error", err)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &StatsResponse{
		ActiveGames:    s.store.Count(),
		TotalPlayers:   s.store.PlayerCount(),
		Connections:    s.gateway.ConnectionCount(),
		PendingRejoins: s.store.PendingCount(),
	})
}

// roomCode reads and validates the {roomCode} path value, answering 400 itself when it is bad
func (s *Server) roomCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := domain.NormalizeRoomCode(r.PathValue("roomCode"))
	if code == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_ROOM_CODE", "Room code is required")
		return "", false
	}
	if !domain.ValidRoomCode(code) {
		s.sendError(w, http.StatusBadRequest, "INVALID_ROOM_CODE", "Invalid room code")
		return "", false
	}
	return code, true
}

// joinURL builds the link phones open to join a room. The configured public URL wins over the request host.
func (s *Server) joinURL(r *http.Request, code string) string {
	base := s.config.Server.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimRight(base, "/") + "/?room=" + url.QueryEscape(code)
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

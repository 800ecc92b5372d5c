package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/inconshreveable/log15"

	"partyhub/room"
	"partyhub/transport/websocket"
)

// Server is the REST + websocket HTTP server.
type Server struct {
	coord   *room.Coordinator
	hub     *websocket.Hub
	monitor *websocket.Monitor
	router  *mux.Router
	log     log15.Logger
}

// NewServer wires the HTTP surface. monitor may be nil; the admin cleanup
// endpoint then runs the store sweep without retiring in-process state.
func NewServer(coord *room.Coordinator, hub *websocket.Hub, monitor *websocket.Monitor, logger log15.Logger) *Server {
	if logger == nil {
		logger = log15.New("module", "api")
	}
	s := &Server{
		coord:   coord,
		hub:     hub,
		monitor: monitor,
		router:  mux.NewRouter(),
		log:     logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/rooms", s.handleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleRoomSummary).Methods("GET")
	api.HandleFunc("/admin/cleanup", s.handleCleanup).Methods("POST")

	s.router.HandleFunc("/ws", s.hub.ServeWS)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		HostName   string `json:"hostName"`
		GameType   string `json:"gameType"`
		MaxPlayers int    `json:"maxPlayers,omitempty"`
		IsPrivate  bool   `json:"isPrivate,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.coord.CreateRoom(r.Context(), room.CreateRoomParams{
		Name:       req.Name,
		HostName:   req.HostName,
		GameType:   req.GameType,
		MaxPlayers: req.MaxPlayers,
		IsPrivate:  req.IsPrivate,
	})
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.hub.NotifyLobby(r.Context())
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.coord.ActiveRooms(r.Context(), 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleRoomSummary(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	summary, err := s.coord.RoomSummary(r.Context(), roomID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var roomsCleaned, playersCleaned int
	if s.monitor != nil {
		roomsCleaned, playersCleaned = s.monitor.Sweep(r.Context())
	} else {
		var err error
		roomsCleaned, playersCleaned, err = s.coord.Cleanup(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"roomsCleaned":   roomsCleaned,
		"playersCleaned": playersCleaned,
	})
}

// statusFor maps coordinator sentinel errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrRoomFull), errors.Is(err, room.ErrNameTaken),
		errors.Is(err, room.ErrGameInProgress):
		return http.StatusConflict
	case errors.Is(err, room.ErrNotHost), errors.Is(err, room.ErrNotInRoom):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

package server

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lawnchairsociety/thornwood/internal/dungeon"
	"github.com/lawnchairsociety/thornwood/internal/logger"
)

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleMap handles GET /map - the room layout with spawn and goal
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newMapView(s.graph))
}

// handleRoom handles GET /rooms/{x}/{y} - materializes the room if needed
func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	x, err := strconv.Atoi(chi.URLParam(r, "x"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	y, err := strconv.Atoi(chi.URLParam(r, "y"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}

	room, err := s.graph.RoomAt(image.Point{X: x, Y: y})
	if errors.Is(err, dungeon.ErrNoRoom) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Error("Room generation failed", "x", x, "y", y, "error", err)
		respondError(w, http.StatusInternalServerError, "room generation failed")
		return
	}

	respondJSON(w, http.StatusOK, newRoomView(room))
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON", "error", err)
	}
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

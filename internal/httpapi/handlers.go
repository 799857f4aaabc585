package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contadorvs/scorerooms/internal/adapter/roomview"
	"github.com/contadorvs/scorerooms/internal/msgcat"
	"github.com/contadorvs/scorerooms/internal/obslog"
	"github.com/contadorvs/scorerooms/internal/room"
	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

// Server holds the handler dependencies: the room manager and the message
// catalog used for user-facing error text.
type Server struct {
	mgr *room.Manager
	cat *msgcat.Catalog
}

func NewServer(mgr *room.Manager, cat *msgcat.Catalog) *Server {
	return &Server{mgr: mgr, cat: cat}
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req roomdto.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, room.ErrInvalidArgs)
		return
	}
	created, err := s.mgr.Create(r.Context(), room.CreateParams{
		Name:            req.Name,
		Capacity:        req.Capacity,
		Mode:            room.GameMode(req.Mode),
		TeamNames:       req.TeamNames,
		CreatorDeviceID: req.DeviceID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomdto.CreateRoomResponse{Code: created.Code, Room: roomview.ToDTO(created)})
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	found, err := s.mgr.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomview.ToDTO(found))
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(r.URL.Query().Get("device"))
	if deviceID == "" {
		s.writeError(w, room.ErrInvalidArgs)
		return
	}
	rooms, err := s.mgr.ListMine(r.Context(), deviceID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomdto.RoomListResponse{Rooms: roomview.ToDTOList(rooms)})
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req roomdto.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, room.ErrInvalidArgs)
		return
	}
	joined, err := s.mgr.Join(r.Context(), chi.URLParam(r, "code"), room.Player{
		DeviceID: req.DeviceID,
		Username: req.Username,
		TeamID:   req.TeamID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomview.ToDTO(joined))
}

func (s *Server) leaveRoom(w http.ResponseWriter, r *http.Request) {
	var req roomdto.DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, room.ErrInvalidArgs)
		return
	}
	if err := s.mgr.Leave(r.Context(), chi.URLParam(r, "code"), req.DeviceID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) changeTeam(w http.ResponseWriter, r *http.Request) {
	var req roomdto.ChangeTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, room.ErrInvalidArgs)
		return
	}
	if err := s.mgr.ChangeTeam(r.Context(), chi.URLParam(r, "code"), req.DeviceID, req.TeamID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) incrementScore(w http.ResponseWriter, r *http.Request) {
	var req roomdto.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, room.ErrInvalidArgs)
		return
	}
	if req.Delta == 0 {
		req.Delta = 1
	}
	if err := s.mgr.IncrementScore(r.Context(), chi.URLParam(r, "code"), req.Key, req.Delta); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetScores(w http.ResponseWriter, r *http.Request) {
	var req roomdto.DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, room.ErrInvalidArgs)
		return
	}
	if err := s.mgr.ResetScores(r.Context(), chi.URLParam(r, "code"), req.DeviceID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) finishRoom(w http.ResponseWriter, r *http.Request) {
	var req roomdto.DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, room.ErrInvalidArgs)
		return
	}
	if err := s.mgr.FinishRoom(r.Context(), chi.URLParam(r, "code"), req.DeviceID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	msg, rerr := s.cat.Render("errors."+code, nil)
	if rerr != nil {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		obslog.L().Warn("request_failed", zap.String("code", code), zap.Error(err))
	}
	writeJSON(w, status, roomdto.ErrorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

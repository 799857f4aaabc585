package httpapi

import (
	"errors"
	"net/http"

	"github.com/contadorvs/scorerooms/internal/room"
	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

// classify maps a protocol error onto its wire code and HTTP status. Anything
// outside the taxonomy is a transport/backend failure.
func classify(err error) (code string, status int) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return roomdto.CodeRoomNotFound, http.StatusNotFound
	case errors.Is(err, room.ErrAlreadyJoined):
		return roomdto.CodeAlreadyJoined, http.StatusConflict
	case errors.Is(err, room.ErrRoomFull):
		return roomdto.CodeRoomFull, http.StatusConflict
	case errors.Is(err, room.ErrRoomFinished):
		return roomdto.CodeRoomFinished, http.StatusConflict
	case errors.Is(err, room.ErrInvalidMode):
		return roomdto.CodeInvalidMode, http.StatusBadRequest
	case errors.Is(err, room.ErrUnknownTeam):
		return roomdto.CodeUnknownTeam, http.StatusBadRequest
	case errors.Is(err, room.ErrNotAuthorized):
		return roomdto.CodeNotAuthorized, http.StatusForbidden
	case errors.Is(err, room.ErrUnknownScoreKey):
		return roomdto.CodeUnknownScoreKey, http.StatusBadRequest
	case errors.Is(err, room.ErrInvalidArgs):
		return roomdto.CodeInvalidArgs, http.StatusBadRequest
	default:
		return roomdto.CodeTransport, http.StatusBadGateway
	}
}

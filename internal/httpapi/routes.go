package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contadorvs/scorerooms/internal/obslog"
	"github.com/contadorvs/scorerooms/internal/ws"
)

// SetupRoutes wires every protocol operation plus the websocket stream.
func SetupRoutes(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLog)

	r.Post("/rooms", s.createRoom)
	r.Get("/rooms", s.listRooms)
	r.Get("/rooms/{code}", s.getRoom)
	r.Post("/rooms/{code}/join", s.joinRoom)
	r.Post("/rooms/{code}/leave", s.leaveRoom)
	r.Post("/rooms/{code}/team", s.changeTeam)
	r.Post("/rooms/{code}/score", s.incrementScore)
	r.Post("/rooms/{code}/reset", s.resetScores)
	r.Post("/rooms/{code}/finish", s.finishRoom)
	r.Get("/ws", ws.Handler(s.mgr))
	r.Get("/healthz", healthz)
	return r
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		obslog.L().Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}

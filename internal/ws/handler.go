// Package ws streams room snapshots to clients over a websocket. The stream
// is push-only: the client picks a room code or a device at connect time and
// then just reads frames until it hangs up.
package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/contadorvs/scorerooms/internal/adapter/roomview"
	"github.com/contadorvs/scorerooms/internal/obslog"
	"github.com/contadorvs/scorerooms/internal/room"
	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

const writeTimeout = 5 * time.Second

// Handler upgrades GET /ws?code=XXXXXX or GET /ws?device=<id>. Exactly one of
// the two must be present.
func Handler(mgr *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(r.URL.Query().Get("code"))
		device := strings.TrimSpace(r.URL.Query().Get("device"))
		if (code == "") == (device == "") {
			http.Error(w, "exactly one of code or device is required", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// CloseRead keeps reading for control frames and cancels the context
		// when the peer goes away; the subscription is released through it.
		ctx := conn.CloseRead(r.Context())

		updates := make(chan roomdto.WSUpdate, 8)
		var cancel room.CancelFunc
		if code != "" {
			cancel, err = mgr.SubscribeByCode(ctx, code, func(snap *room.Room) {
				u := roomdto.WSUpdate{Type: "room"}
				if snap != nil {
					dto := roomview.ToDTO(snap)
					u.Room = &dto
				}
				push(updates, u)
			})
		} else {
			cancel, err = mgr.SubscribeMine(ctx, device, func(rooms []*room.Room) {
				push(updates, roomdto.WSUpdate{Type: "rooms", Rooms: roomview.ToDTOList(rooms)})
			})
		}
		if err != nil {
			obslog.L().Warn("ws_subscribe_failed", zap.String("code", code), zap.String("device", device), zap.Error(err))
			conn.Close(websocket.StatusInternalError, "subscribe failed")
			return
		}
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updates:
				wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
				err := wsjson.Write(wctx, conn, u)
				wcancel()
				if err != nil {
					return
				}
			}
		}
	}
}

// push drops the update when the client cannot keep up; the next event
// carries a full snapshot anyway.
func push(ch chan roomdto.WSUpdate, u roomdto.WSUpdate) {
	select {
	case ch <- u:
	default:
	}
}

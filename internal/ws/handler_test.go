package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/contadorvs/scorerooms/internal/room"
	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

func newTestStream(t *testing.T) (*room.Manager, *httptest.Server) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mgr := room.NewManager(rdb)
	srv := httptest.NewServer(Handler(mgr))
	t.Cleanup(srv.Close)
	return mgr, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) roomdto.WSUpdate {
	t.Helper()
	rctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var u roomdto.WSUpdate
	if err := wsjson.Read(rctx, conn, &u); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return u
}

func TestStreamRoom(t *testing.T) {
	mgr, srv := newTestStream(t)
	ctx := context.Background()

	created, err := mgr.Create(ctx, room.CreateParams{Name: "sala", Capacity: 4, Mode: room.ModeSolo, CreatorDeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conn, _, err := websocket.Dial(ctx, wsURL(srv)+"?code="+created.Code, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	first := readFrame(t, ctx, conn)
	if first.Type != "room" || first.Room == nil || first.Room.Code != created.Code {
		t.Fatalf("initial frame: %+v", first)
	}

	if _, err := mgr.Join(ctx, created.Code, room.Player{DeviceID: "dev-2", Username: "Ana"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	next := readFrame(t, ctx, conn)
	if next.Room == nil || len(next.Room.Players) != 1 {
		t.Fatalf("frame after join: %+v", next)
	}
}

func TestStreamMine(t *testing.T) {
	mgr, srv := newTestStream(t)
	ctx := context.Background()

	conn, _, err := websocket.Dial(ctx, wsURL(srv)+"?device=dev-1", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	first := readFrame(t, ctx, conn)
	if first.Type != "rooms" || len(first.Rooms) != 0 {
		t.Fatalf("initial frame: %+v", first)
	}

	created, err := mgr.Create(ctx, room.CreateParams{Name: "sala", Capacity: 4, Mode: room.ModeSolo, CreatorDeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for created room frame")
		}
		u := readFrame(t, ctx, conn)
		if len(u.Rooms) == 1 && u.Rooms[0].Code == created.Code {
			return
		}
	}
}

func TestRejectsBadQuery(t *testing.T) {
	_, srv := newTestStream(t)

	for _, q := range []string{"", "?code=ABC234&device=dev-1"} {
		resp, err := http.Get(srv.URL + q)
		if err != nil {
			t.Fatalf("GET %q: %v", q, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("query %q: status %d", q, resp.StatusCode)
		}
	}
}

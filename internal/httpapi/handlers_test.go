package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/contadorvs/scorerooms/internal/msgcat"
	"github.com/contadorvs/scorerooms/internal/room"
	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	srv := httptest.NewServer(SetupRoutes(NewServer(room.NewManager(rdb), cat)))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func createTestRoom(t *testing.T, srv *httptest.Server, req roomdto.CreateRoomRequest) roomdto.CreateRoomResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/rooms", req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	return decodeBody[roomdto.CreateRoomResponse](t, resp)
}

func TestRoomFlow(t *testing.T) {
	srv := newTestServer(t)

	created := createTestRoom(t, srv, roomdto.CreateRoomRequest{
		Name: "Torneo", Capacity: 4, Mode: "teams", TeamNames: []string{"Rojo", "Azul"}, DeviceID: "dev-1",
	})
	if created.Code == "" || created.Room.Name != "Torneo" {
		t.Fatalf("create response: %+v", created)
	}

	resp := postJSON(t, srv.URL+"/rooms/"+created.Code+"/join", roomdto.JoinRequest{
		DeviceID: "dev-2", Username: "Ana", TeamID: "team-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status %d", resp.StatusCode)
	}
	joined := decodeBody[roomdto.Room](t, resp)
	if len(joined.Players) != 1 || joined.Players[0].TeamID != "team-1" {
		t.Fatalf("join response: %+v", joined)
	}

	resp = postJSON(t, srv.URL+"/rooms/"+created.Code+"/score", roomdto.ScoreRequest{Key: "team-1", Delta: 3})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("score status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// delta omitted defaults to one point
	resp = postJSON(t, srv.URL+"/rooms/"+created.Code+"/score", roomdto.ScoreRequest{Key: "team-1"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("score status %d", resp.StatusCode)
	}
	resp.Body.Close()

	getResp, err := http.Get(srv.URL + "/rooms/" + created.Code)
	if err != nil {
		t.Fatalf("GET room: %v", err)
	}
	got := decodeBody[roomdto.Room](t, getResp)
	if got.Scores["team-1"] != 4 {
		t.Fatalf("score = %d, want 4", got.Scores["team-1"])
	}

	resp = postJSON(t, srv.URL+"/rooms/"+created.Code+"/team", roomdto.ChangeTeamRequest{DeviceID: "dev-2", TeamID: "team-2"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("team status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/rooms/"+created.Code+"/reset", roomdto.DeviceRequest{DeviceID: "dev-1"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("reset status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/rooms/"+created.Code+"/finish", roomdto.DeviceRequest{DeviceID: "dev-1"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("finish status %d", resp.StatusCode)
	}
	resp.Body.Close()

	getResp, err = http.Get(srv.URL + "/rooms/" + created.Code)
	if err != nil {
		t.Fatalf("GET room: %v", err)
	}
	got = decodeBody[roomdto.Room](t, getResp)
	if !got.IsFinished || len(got.Scores) != 0 {
		t.Fatalf("final room: %+v", got)
	}
}

func TestListRooms(t *testing.T) {
	srv := newTestServer(t)
	createTestRoom(t, srv, roomdto.CreateRoomRequest{Name: "mía", Capacity: 4, Mode: "solo", DeviceID: "dev-1"})
	createTestRoom(t, srv, roomdto.CreateRoomRequest{Name: "ajena", Capacity: 4, Mode: "solo", DeviceID: "dev-9"})

	resp, err := http.Get(srv.URL + "/rooms?device=dev-1")
	if err != nil {
		t.Fatalf("GET rooms: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	listing := decodeBody[roomdto.RoomListResponse](t, resp)
	if len(listing.Rooms) != 1 || listing.Rooms[0].Name != "mía" {
		t.Fatalf("listing: %+v", listing)
	}

	resp, err = http.Get(srv.URL + "/rooms")
	if err != nil {
		t.Fatalf("GET rooms: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing device: status %d", resp.StatusCode)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	created := createTestRoom(t, srv, roomdto.CreateRoomRequest{Name: "sala", Capacity: 2, Mode: "solo", DeviceID: "dev-1"})

	cases := []struct {
		name    string
		run     func() *http.Response
		status  int
		code    string
		message string
	}{
		{
			name: "room not found",
			run: func() *http.Response {
				resp, err := http.Get(srv.URL + "/rooms/ZZZZZZ")
				if err != nil {
					t.Fatalf("GET: %v", err)
				}
				return resp
			},
			status: http.StatusNotFound, code: roomdto.CodeRoomNotFound, message: "La sala no existe",
		},
		{
			name: "already joined",
			run: func() *http.Response {
				postJSON(t, srv.URL+"/rooms/"+created.Code+"/join", roomdto.JoinRequest{DeviceID: "dev-2"}).Body.Close()
				return postJSON(t, srv.URL+"/rooms/"+created.Code+"/join", roomdto.JoinRequest{DeviceID: "dev-2"})
			},
			status: http.StatusConflict, code: roomdto.CodeAlreadyJoined, message: "Ya estás en esta sala",
		},
		{
			name: "room full",
			run: func() *http.Response {
				postJSON(t, srv.URL+"/rooms/"+created.Code+"/join", roomdto.JoinRequest{DeviceID: "dev-3"}).Body.Close()
				postJSON(t, srv.URL+"/rooms/"+created.Code+"/join", roomdto.JoinRequest{DeviceID: "dev-4"}).Body.Close()
				return postJSON(t, srv.URL+"/rooms/"+created.Code+"/join", roomdto.JoinRequest{DeviceID: "dev-5"})
			},
			status: http.StatusConflict, code: roomdto.CodeRoomFull, message: "La sala está llena",
		},
		{
			name: "not authorized",
			run: func() *http.Response {
				return postJSON(t, srv.URL+"/rooms/"+created.Code+"/finish", roomdto.DeviceRequest{DeviceID: "dev-2"})
			},
			status: http.StatusForbidden, code: roomdto.CodeNotAuthorized, message: "Solo el creador puede hacer esto",
		},
		{
			name: "invalid mode",
			run: func() *http.Response {
				return postJSON(t, srv.URL+"/rooms/"+created.Code+"/team", roomdto.ChangeTeamRequest{DeviceID: "dev-2", TeamID: "team-1"})
			},
			status: http.StatusBadRequest, code: roomdto.CodeInvalidMode, message: "Solo puedes cambiar de equipo en modo equipos",
		},
		{
			name: "unknown score key",
			run: func() *http.Response {
				return postJSON(t, srv.URL+"/rooms/"+created.Code+"/score", roomdto.ScoreRequest{Key: "dev-99", Delta: 1})
			},
			status: http.StatusBadRequest, code: roomdto.CodeUnknownScoreKey, message: "No se puede puntuar esa clave",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := tc.run()
			if resp.StatusCode != tc.status {
				t.Fatalf("status %d, want %d", resp.StatusCode, tc.status)
			}
			body := decodeBody[roomdto.ErrorResponse](t, resp)
			if body.Error != tc.code {
				t.Fatalf("code %q, want %q", body.Error, tc.code)
			}
			if body.Message != tc.message {
				t.Fatalf("message %q, want %q", body.Message, tc.message)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

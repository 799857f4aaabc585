package room

import (
	"context"
	"testing"
	"time"
)

func waitSnapshot(t *testing.T, ch <-chan *Room) *Room {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeByCode(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	r := mustCreate(t, m, CreateParams{Name: "sala", Capacity: 4, Mode: ModeSolo, CreatorDeviceID: "dev-1"})

	snaps := make(chan *Room, 16)
	cancel, err := m.SubscribeByCode(ctx, r.Code, func(snap *Room) { snaps <- snap })
	if err != nil {
		t.Fatalf("SubscribeByCode: %v", err)
	}
	defer cancel()

	first := waitSnapshot(t, snaps)
	if first == nil || first.Code != r.Code {
		t.Fatalf("initial snapshot: %+v", first)
	}
	if len(first.Players) != 0 {
		t.Fatalf("initial players: %+v", first.Players)
	}

	if _, err := m.Join(ctx, r.Code, Player{DeviceID: "dev-2", Username: "Ana"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	next := waitSnapshot(t, snaps)
	if next == nil || len(next.Players) != 1 {
		t.Fatalf("snapshot after join: %+v", next)
	}

	if err := m.IncrementScore(ctx, r.Code, "dev-2", 2); err != nil {
		t.Fatalf("IncrementScore: %v", err)
	}
	scored := waitSnapshot(t, snaps)
	if scored == nil || scored.Scores["dev-2"] != 2 {
		t.Fatalf("snapshot after score: %+v", scored)
	}
}

func TestSubscribeByCodeMissingRoom(t *testing.T) {
	m := newTestManager(t)

	snaps := make(chan *Room, 1)
	cancel, err := m.SubscribeByCode(context.Background(), "ZZZZZZ", func(snap *Room) { snaps <- snap })
	if err != nil {
		t.Fatalf("SubscribeByCode: %v", err)
	}
	defer cancel()

	if snap := waitSnapshot(t, snaps); snap != nil {
		t.Fatalf("missing room should deliver nil, got %+v", snap)
	}
}

func TestSubscribeMine(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	lists := make(chan []*Room, 16)
	cancel, err := m.SubscribeMine(ctx, "dev-1", func(rooms []*Room) { lists <- rooms })
	if err != nil {
		t.Fatalf("SubscribeMine: %v", err)
	}
	defer cancel()

	select {
	case rooms := <-lists:
		if len(rooms) != 0 {
			t.Fatalf("initial listing: %+v", rooms)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for initial listing")
	}

	r := mustCreate(t, m, CreateParams{Name: "sala", Capacity: 4, Mode: ModeSolo, CreatorDeviceID: "dev-1"})

	deadline := time.After(3 * time.Second)
	for {
		select {
		case rooms := <-lists:
			if len(rooms) == 1 && rooms[0].Code == r.Code {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for created room in listing")
		}
	}
}

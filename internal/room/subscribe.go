package room

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/contadorvs/scorerooms/internal/obslog"
)

// CancelFunc releases a subscription. Safe to call more than once.
type CancelFunc func()

// SubscribeByCode delivers the current snapshot immediately and a fresh one
// after every mutation of the room. A nil snapshot means the room does not
// exist. Callbacks run on a single goroutine, in order.
func (m *Manager) SubscribeByCode(ctx context.Context, code string, fn func(*Room)) (CancelFunc, error) {
	code = NormalizeCode(code)
	sub := m.rdb.Subscribe(ctx, eventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		fn(m.snapshot(ctx, code))
		for msg := range sub.Channel() {
			ev, ok := decodeEvent(msg.Payload)
			if !ok || ev.Code != code {
				continue
			}
			fn(m.snapshot(ctx, code))
		}
	}()

	return func() { _ = sub.Close() }, nil
}

// SubscribeMine delivers the device's full open-room listing immediately and
// again after every room mutation. Consumers replace their copy wholesale;
// snapshots are never deltas.
func (m *Manager) SubscribeMine(ctx context.Context, deviceID string, fn func([]*Room)) (CancelFunc, error) {
	sub := m.rdb.Subscribe(ctx, eventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	deliver := func() {
		rooms, err := m.ListMine(ctx, deviceID)
		if err != nil {
			obslog.L().Warn("subscribe_mine_reload_failed", zap.String("device", deviceID), zap.Error(err))
			return
		}
		fn(rooms)
	}

	go func() {
		deliver()
		for msg := range sub.Channel() {
			if _, ok := decodeEvent(msg.Payload); !ok {
				continue
			}
			deliver()
		}
	}()

	return func() { _ = sub.Close() }, nil
}

func (m *Manager) snapshot(ctx context.Context, code string) *Room {
	r, err := m.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			obslog.L().Warn("subscribe_reload_failed", zap.String("code", code), zap.Error(err))
		}
		return nil
	}
	return r
}

func decodeEvent(payload string) (Event, bool) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, false
	}
	return ev, true
}

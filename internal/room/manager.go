package room

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/contadorvs/scorerooms/internal/obslog"
)

const (
	codeAllocAttempts = 5
	txRetries         = 8

	minCapacity = 2
	maxCapacity = 50
	minTeams    = 2
	maxTeams    = 8
)

// Manager implements the room lifecycle protocol on top of Store. Every
// read-modify-write runs inside a WATCH transaction on the room document, so
// concurrent joins, leaves and team changes cannot lose updates.
type Manager struct {
	rdb     *redis.Client
	store   *Store
	archive *Archive
	now     func() time.Time
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb), now: time.Now}
}

// AttachArchive wires a database archive for finished rooms.
func (m *Manager) AttachArchive(a *Archive) {
	if m != nil {
		m.archive = a
	}
}

// Create allocates a code with SETNX so a collision retries instead of
// silently overwriting another room, then writes the initial document.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*Room, error) {
	if strings.TrimSpace(params.CreatorDeviceID) == "" {
		return nil, ErrInvalidArgs
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrInvalidArgs
	}
	if params.Mode != ModeSolo && params.Mode != ModeTeams {
		return nil, ErrInvalidArgs
	}

	capacity := clamp(params.Capacity, minCapacity, maxCapacity)
	teams := buildTeams(params.Mode, params.TeamNames)

	for i := 0; i < codeAllocAttempts; i++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		now := m.now()
		r := &Room{
			Code:            code,
			Name:            name,
			Mode:            params.Mode,
			Teams:           teams,
			Players:         []Player{},
			Scores:          map[string]int64{},
			Capacity:        capacity,
			CreatorDeviceID: params.CreatorDeviceID,
			IsFinished:      false,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		raw, err := marshalDoc(r)
		if err != nil {
			return nil, err
		}
		ok, err := m.rdb.SetNX(ctx, m.store.keyDoc(code), raw, 0).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := m.store.addDeviceIndex(ctx, params.CreatorDeviceID, code); err != nil {
			return nil, err
		}
		m.store.Publish(ctx, Event{Code: code, Kind: "created"})
		obslog.L().Info("room_create",
			zap.String("code", code),
			zap.String("mode", string(r.Mode)),
			zap.Int("capacity", r.Capacity),
			zap.String("creator_device", r.CreatorDeviceID),
		)
		return r, nil
	}
	return nil, fmt.Errorf("failed to allocate room code")
}

// GetByCode is a point lookup merging the document with its scores. A
// malformed code can never name a room, so it short-circuits to not-found.
func (m *Manager) GetByCode(ctx context.Context, code string) (*Room, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, ErrRoomNotFound
	}
	r, err := m.store.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Join adds player to the room. Duplicate deviceIDs are rejected outright
// rather than collapsed by set semantics, so a rejoin with a different
// username can never produce two entries for one device.
func (m *Manager) Join(ctx context.Context, code string, player Player) (*Room, error) {
	code = NormalizeCode(code)
	if strings.TrimSpace(player.DeviceID) == "" {
		return nil, ErrInvalidArgs
	}
	err := m.mutateDoc(ctx, code, func(r *Room, pipe redis.Pipeliner) error {
		if r.HasPlayer(player.DeviceID) {
			return ErrAlreadyJoined
		}
		if len(r.Players) >= r.Capacity {
			return ErrRoomFull
		}
		if r.Mode == ModeTeams && player.TeamID != "" && !r.HasTeam(player.TeamID) {
			return ErrUnknownTeam
		}
		r.Players = append(r.Players, player)
		pipe.SAdd(ctx, m.store.keyDeviceIdx(player.DeviceID), code)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.store.Publish(ctx, Event{Code: code, Kind: "updated"})
	obslog.L().Info("room_join", zap.String("code", code), zap.String("device", player.DeviceID))
	return m.GetByCode(ctx, code)
}

// Leave removes the player with deviceID. A device that never joined is a
// no-op, matching the original service.
func (m *Manager) Leave(ctx context.Context, code, deviceID string) error {
	code = NormalizeCode(code)
	err := m.mutateDoc(ctx, code, func(r *Room, pipe redis.Pipeliner) error {
		kept := r.Players[:0]
		for _, p := range r.Players {
			if p.DeviceID != deviceID {
				kept = append(kept, p)
			}
		}
		r.Players = kept
		if r.CreatorDeviceID != deviceID {
			pipe.SRem(ctx, m.store.keyDeviceIdx(deviceID), code)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.store.Publish(ctx, Event{Code: code, Kind: "updated"})
	obslog.L().Info("room_leave", zap.String("code", code), zap.String("device", deviceID))
	return nil
}

// ChangeTeam rewrites the player's teamId. Only meaningful in teams mode.
func (m *Manager) ChangeTeam(ctx context.Context, code, deviceID, newTeamID string) error {
	code = NormalizeCode(code)
	err := m.mutateDoc(ctx, code, func(r *Room, pipe redis.Pipeliner) error {
		if r.Mode != ModeTeams {
			return ErrInvalidMode
		}
		if !r.HasTeam(newTeamID) {
			return ErrUnknownTeam
		}
		for i := range r.Players {
			if r.Players[i].DeviceID == deviceID {
				r.Players[i].TeamID = newTeamID
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.store.Publish(ctx, Event{Code: code, Kind: "updated"})
	return nil
}

// IncrementScore adds delta to scores[key] with a bare HINCRBY, creating the
// key at delta when absent. The increment runs outside the document WATCH so
// concurrent taps never contend with each other or with membership changes;
// the finished and key checks read the doc once, and the updatedAt touch
// yields to any concurrent doc writer.
func (m *Manager) IncrementScore(ctx context.Context, code, key string, delta int64) error {
	code = NormalizeCode(code)
	r, err := m.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if r.IsFinished {
		return ErrRoomFinished
	}
	if !r.ScoreKeyValid(key) {
		return ErrUnknownScoreKey
	}
	if err := m.rdb.HIncrBy(ctx, m.store.keyScores(code), key, delta).Err(); err != nil {
		return err
	}
	m.touchDoc(ctx, code)
	m.store.Publish(ctx, Event{Code: code, Kind: "scores"})
	return nil
}

// touchDoc refreshes updatedAt in a single WATCH attempt. A conflicting write
// already carries a fresher timestamp, so losing the race is not an error.
func (m *Manager) touchDoc(ctx context.Context, code string) {
	key := m.store.keyDoc(code)
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		r, err := unmarshalDoc(raw)
		if err != nil {
			return err
		}
		r.UpdatedAt = m.now()
		out, err := marshalDoc(r)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, out, 0)
		_, err = pipe.Exec(ctx)
		return err
	}, key)
	if err != nil && err != redis.TxFailedErr && err != redis.Nil {
		obslog.L().Warn("room_touch_failed", zap.String("code", code), zap.Error(err))
	}
}

// ResetScores empties the score map. Creator only.
func (m *Manager) ResetScores(ctx context.Context, code, requesterDeviceID string) error {
	code = NormalizeCode(code)
	err := m.mutateDoc(ctx, code, func(r *Room, pipe redis.Pipeliner) error {
		if r.CreatorDeviceID != requesterDeviceID {
			return ErrNotAuthorized
		}
		pipe.Del(ctx, m.store.keyScores(code))
		return nil
	})
	if err != nil {
		return err
	}
	m.store.Publish(ctx, Event{Code: code, Kind: "scores"})
	obslog.L().Info("room_reset_scores", zap.String("code", code))
	return nil
}

// FinishRoom latches isFinished. Creator only, and there is no way back:
// every later mutation fails with ErrRoomFinished. The final state is
// archived to the database when one is attached.
func (m *Manager) FinishRoom(ctx context.Context, code, requesterDeviceID string) error {
	code = NormalizeCode(code)
	err := m.mutateDoc(ctx, code, func(r *Room, pipe redis.Pipeliner) error {
		if r.CreatorDeviceID != requesterDeviceID {
			return ErrNotAuthorized
		}
		r.IsFinished = true
		return nil
	})
	if err != nil {
		return err
	}
	m.store.Publish(ctx, Event{Code: code, Kind: "finished"})
	obslog.L().Info("room_finish", zap.String("code", code))

	if m.archive != nil {
		final, err := m.GetByCode(ctx, code)
		if err == nil {
			if aerr := m.archive.SaveRoom(ctx, final); aerr != nil {
				obslog.L().Warn("room_archive_failed", zap.String("code", code), zap.Error(aerr))
			}
		}
	}
	return nil
}

// ListMine returns open rooms where the device is creator or member, newest
// first. Finished rooms stay readable by code but drop out of this listing.
func (m *Manager) ListMine(ctx context.Context, deviceID string) ([]*Room, error) {
	codes, err := m.store.CodesByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	out := make([]*Room, 0, len(codes))
	for _, c := range codes {
		r, lerr := m.store.Load(ctx, c)
		if lerr != nil || r == nil {
			continue
		}
		if r.IsFinished {
			continue
		}
		if r.CreatorDeviceID != deviceID && !r.HasPlayer(deviceID) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// mutateDoc runs fn inside a WATCH transaction on the room document. fn may
// mutate the doc and queue extra commands on pipe; the rewritten doc (with a
// fresh updatedAt) and the queued commands commit atomically. Contended
// transactions retry a bounded number of times.
func (m *Manager) mutateDoc(ctx context.Context, code string, fn func(r *Room, pipe redis.Pipeliner) error) error {
	if !ValidCode(code) {
		return ErrRoomNotFound
	}
	key := m.store.keyDoc(code)
	for i := 0; i < txRetries; i++ {
		err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrRoomNotFound
			}
			if err != nil {
				return err
			}
			r, err := unmarshalDoc(raw)
			if err != nil {
				return err
			}
			if r.IsFinished {
				return ErrRoomFinished
			}

			pipe := tx.TxPipeline()
			if err := fn(r, pipe); err != nil {
				return err
			}
			r.UpdatedAt = m.now()
			out, err := marshalDoc(r)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, out, 0)
			_, err = pipe.Exec(ctx)
			return err
		}, key)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func buildTeams(mode GameMode, names []string) []Team {
	if mode != ModeTeams {
		return []Team{}
	}
	if len(names) == 0 {
		names = []string{"Equipo 1", "Equipo 2"}
	}
	if len(names) < minTeams {
		padded := make([]string, minTeams)
		copy(padded, names)
		names = padded
	}
	if len(names) > maxTeams {
		names = names[:maxTeams]
	}
	teams := make([]Team, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = fmt.Sprintf("Equipo %d", i+1)
		}
		teams[i] = Team{ID: fmt.Sprintf("team-%d", i+1), Name: name}
	}
	return teams
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

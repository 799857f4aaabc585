package room

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// eventsChannel carries one message per room mutation. Subscribers reload
// snapshots on receipt, so the payload only needs to identify the room.
const eventsChannel = "rooms:events"

// Event is published on eventsChannel after every successful mutation.
type Event struct {
	Code string `json:"code"`
	Kind string `json:"kind"` // created | updated | scores | finished
}

// Store owns the Redis key layout for room documents. The document itself is
// JSON under room:<code>; scores live in a hash beside it so HINCRBY gives
// true atomic increments under concurrent taps.
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyDoc(code string) string     { return "room:" + strings.TrimSpace(code) }
func (s *Store) keyScores(code string) string  { return s.keyDoc(code) + ":scores" }
func (s *Store) keyDeviceIdx(id string) string { return "room:index:device:" + strings.TrimSpace(id) }

// LoadDoc returns the bare document without scores, or nil when absent.
func (s *Store) LoadDoc(ctx context.Context, code string) (*Room, error) {
	raw, err := s.rdb.Get(ctx, s.keyDoc(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return unmarshalDoc(raw)
}

// Load returns the document merged with its scores hash, or nil when absent.
func (s *Store) Load(ctx context.Context, code string) (*Room, error) {
	r, err := s.LoadDoc(ctx, code)
	if err != nil || r == nil {
		return r, err
	}
	scores, err := s.LoadScores(ctx, code)
	if err != nil {
		return nil, err
	}
	r.Scores = scores
	return r, nil
}

// LoadScores reads the scores hash. Missing keys simply read as 0 on the
// caller's side; an absent hash yields an empty map.
func (s *Store) LoadScores(ctx context.Context, code string) (map[string]int64, error) {
	fields, err := s.rdb.HGetAll(ctx, s.keyScores(code)).Result()
	if err != nil {
		return nil, err
	}
	scores := make(map[string]int64, len(fields))
	for k, v := range fields {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		scores[k] = n
	}
	return scores, nil
}

// CodesByDevice lists codes where the device is creator or member.
func (s *Store) CodesByDevice(ctx context.Context, deviceID string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyDeviceIdx(deviceID)).Result()
}

func (s *Store) addDeviceIndex(ctx context.Context, deviceID, code string) error {
	return s.rdb.SAdd(ctx, s.keyDeviceIdx(deviceID), code).Err()
}

// Publish notifies subscribers that a room changed. Delivery failures do not
// fail the mutation that triggered them.
func (s *Store) Publish(ctx context.Context, ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = s.rdb.Publish(ctx, eventsChannel, raw).Err()
}

func marshalDoc(r *Room) ([]byte, error) {
	doc := *r
	doc.Scores = nil
	return json.Marshal(&doc)
}

func unmarshalDoc(raw []byte) (*Room, error) {
	var r Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if r.Teams == nil {
		r.Teams = []Team{}
	}
	if r.Players == nil {
		r.Players = []Player{}
	}
	r.Scores = map[string]int64{}
	return &r, nil
}

package room

import "time"

// GameMode selects how scores are keyed: per player or per team.
type GameMode string

const (
	ModeSolo  GameMode = "solo"
	ModeTeams GameMode = "teams"
)

// Team is a named scoring bucket inside a teams-mode room. IDs are team-1..team-N.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player is a device's membership in a room. TeamID is empty in solo mode.
type Player struct {
	DeviceID string `json:"deviceId"`
	Username string `json:"username"`
	TeamID   string `json:"teamId,omitempty"`
}

// Room is the shared document. Scores live in a companion Redis hash so
// increments stay backend-atomic; Load merges them back into this struct.
type Room struct {
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	Mode            GameMode         `json:"mode"`
	Teams           []Team           `json:"teams"`
	Players         []Player         `json:"players"`
	Scores          map[string]int64 `json:"scores"`
	Capacity        int              `json:"capacity"`
	CreatorDeviceID string           `json:"creatorDeviceId"`
	IsFinished      bool             `json:"isFinished"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// HasPlayer reports whether deviceID is already a member.
func (r *Room) HasPlayer(deviceID string) bool {
	for _, p := range r.Players {
		if p.DeviceID == deviceID {
			return true
		}
	}
	return false
}

// HasTeam reports whether teamID is one of the room's teams.
func (r *Room) HasTeam(teamID string) bool {
	for _, t := range r.Teams {
		if t.ID == teamID {
			return true
		}
	}
	return false
}

// ScoreKeyValid reports whether key may be incremented under the room's mode:
// player deviceIDs in solo mode, team IDs in teams mode.
func (r *Room) ScoreKeyValid(key string) bool {
	if r.Mode == ModeTeams {
		return r.HasTeam(key)
	}
	return r.HasPlayer(key)
}

// CreateParams are the creation-time knobs. Capacity and team count are
// clamped rather than rejected, matching the entry form behavior.
type CreateParams struct {
	Name            string
	Capacity        int
	Mode            GameMode
	TeamNames       []string
	CreatorDeviceID string
}

// Errors of the room protocol. Transport failures from Redis are returned
// as-is; everything the caller can act on is one of these sentinels.
var (
	ErrRoomNotFound    = errf("room not found")
	ErrAlreadyJoined   = errf("player already in room")
	ErrRoomFull        = errf("room is full")
	ErrRoomFinished    = errf("room is finished")
	ErrInvalidMode     = errf("room is not in teams mode")
	ErrUnknownTeam     = errf("team does not exist in room")
	ErrNotAuthorized   = errf("only the room creator may do this")
	ErrUnknownScoreKey = errf("score key is not a valid player or team")
	ErrInvalidArgs     = errf("invalid arguments")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

package roomdto

// Error codes carried in ErrorResponse.Error. Message is the rendered
// user-facing text in the server's configured language.
const (
	CodeRoomNotFound    = "room_not_found"
	CodeAlreadyJoined   = "already_joined"
	CodeRoomFull        = "room_full"
	CodeRoomFinished    = "room_finished"
	CodeInvalidMode     = "invalid_mode"
	CodeUnknownTeam     = "unknown_team"
	CodeNotAuthorized   = "not_authorized"
	CodeUnknownScoreKey = "unknown_score_key"
	CodeInvalidArgs     = "invalid_args"
	CodeTransport       = "transport"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type CreateRoomRequest struct {
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	Mode      string   `json:"mode"`
	TeamNames []string `json:"teamNames,omitempty"`
	DeviceID  string   `json:"deviceId"`
}

type CreateRoomResponse struct {
	Code string `json:"code"`
	Room Room   `json:"room"`
}

type JoinRequest struct {
	DeviceID string `json:"deviceId"`
	Username string `json:"username"`
	TeamID   string `json:"teamId,omitempty"`
}

type DeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

type ChangeTeamRequest struct {
	DeviceID string `json:"deviceId"`
	TeamID   string `json:"teamId"`
}

type ScoreRequest struct {
	Key   string `json:"key"`
	Delta int64  `json:"delta"`
}

type RoomListResponse struct {
	Rooms []Room `json:"rooms"`
}

// WSUpdate is one frame on the /ws stream. Exactly one of Room / Rooms is
// set, depending on whether the stream follows a code or a device. A nil Room
// on a code stream means the room does not exist.
type WSUpdate struct {
	Type  string `json:"type"` // room | rooms
	Room  *Room  `json:"room,omitempty"`
	Rooms []Room `json:"rooms,omitempty"`
}

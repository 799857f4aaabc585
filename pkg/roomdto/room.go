// Package roomdto holds the wire types shared by the server, the client SDK
// and the CLI.
package roomdto

import "time"

type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Player struct {
	DeviceID string `json:"deviceId"`
	Username string `json:"username"`
	TeamID   string `json:"teamId,omitempty"`
}

type Room struct {
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	Mode            string           `json:"mode"`
	Teams           []Team           `json:"teams"`
	Players         []Player         `json:"players"`
	Scores          map[string]int64 `json:"scores"`
	Capacity        int              `json:"capacity"`
	CreatorDeviceID string           `json:"creatorDeviceId"`
	IsFinished      bool             `json:"isFinished"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

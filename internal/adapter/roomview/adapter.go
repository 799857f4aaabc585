// Package roomview converts domain rooms into their wire DTOs.
package roomview

import (
	"github.com/contadorvs/scorerooms/internal/room"
	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

// ToDTO copies a domain room into its wire shape. Slices and the score map
// are duplicated so the DTO never aliases manager-owned state.
func ToDTO(r *room.Room) roomdto.Room {
	teams := make([]roomdto.Team, len(r.Teams))
	for i, t := range r.Teams {
		teams[i] = roomdto.Team{ID: t.ID, Name: t.Name}
	}
	players := make([]roomdto.Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = roomdto.Player{DeviceID: p.DeviceID, Username: p.Username, TeamID: p.TeamID}
	}
	scores := make(map[string]int64, len(r.Scores))
	for k, v := range r.Scores {
		scores[k] = v
	}
	return roomdto.Room{
		Code:            r.Code,
		Name:            r.Name,
		Mode:            string(r.Mode),
		Teams:           teams,
		Players:         players,
		Scores:          scores,
		Capacity:        r.Capacity,
		CreatorDeviceID: r.CreatorDeviceID,
		IsFinished:      r.IsFinished,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ToDTOList converts a listing, keeping order.
func ToDTOList(rooms []*room.Room) []roomdto.Room {
	out := make([]roomdto.Room, len(rooms))
	for i, r := range rooms {
		out[i] = ToDTO(r)
	}
	return out
}

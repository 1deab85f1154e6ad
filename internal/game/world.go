package game

import "github.com/Psikuvit/cashclash/internal/match"

// Location is an arena position resolved by the world layer.
type Location struct {
	Arena   string
	X, Y, Z float64
}

// WorldAdapter is the boundary to arena/world management. The core only
// fires teleports and asks for respawn points; everything spatial lives on
// the other side.
type WorldAdapter interface {
	// TeleportAll moves every participant to the phase-appropriate spot.
	// Fire-and-forget; the core consumes no result.
	TeleportAll(matchID string, phase match.Phase)
	// RespawnLocation resolves where a respawning participant appears.
	// ok=false means nothing is configured and the core falls back to a
	// default.
	RespawnLocation(matchID string) (Location, bool)
}

// NopWorld is the default adapter for deployments without an arena backend
// and for simulations.
type NopWorld struct{}

func (NopWorld) TeleportAll(string, match.Phase) {}

func (NopWorld) RespawnLocation(string) (Location, bool) { return Location{}, false }

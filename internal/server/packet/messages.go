package packet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OCharnyshevich/snake-server/internal/server/world"
)

// Text message types.
const (
	TypeJoin        = "join"
	TypeSpawn       = "spawn"
	TypeDead        = "dead"
	TypeNames       = "names"
	TypeLeaderboard = "leaderboard"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Join is sent by a client to enter the arena. A client that never joins
// stays a spectator.
type Join struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Skin uint8  `json:"skin"`
}

// Spawn tells a client which snake it controls and the world geometry it
// needs to decode frames.
type Spawn struct {
	Type      string  `json:"type"`
	ID        uint32  `json:"id"`
	Name      string  `json:"name"`
	Skin      uint8   `json:"skin"`
	ChunkSize float64 `json:"chunkSize"`
	Rows      int     `json:"rows"`
	Cols      int     `json:"cols"`
	MaxTurn   float64 `json:"maxTurn"`
	Speed     float64 `json:"speed"`
	Boost     float64 `json:"boostSpeed"`
}

// Dead tells a client its snake died.
type Dead struct {
	Type   string  `json:"type"`
	Killer string  `json:"killer,omitempty"`
	Length float64 `json:"length"`
}

// Names maps snake ids to display names for snakes a client has just
// learned about.
type Names struct {
	Type  string            `json:"type"`
	Names map[uint32]string `json:"names"`
}

// Leaderboard carries the current length ranking.
type Leaderboard struct {
	Type    string                   `json:"type"`
	Entries []world.LeaderboardEntry `json:"entries"`
}

// ParseText decodes a client text message. Only Join is accepted from
// clients.
func ParseText(data []byte) (*Join, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse text: %w", err)
	}
	if head.Type != TypeJoin {
		return nil, fmt.Errorf("parse text %q: %w", head.Type, ErrUnknownMessage)
	}

	var j Join
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse join: %w", err)
	}
	return &j, nil
}

// Package domain contains entities without logic, just meta-data
package domain

type (
	RoomCode string
	UserID   string
)

// Status is the lifecycle phase of a room.
type Status string

const (
	StatusLobby    Status = "LOBBY"
	StatusPlaying  Status = "PLAYING"
	StatusGameOver Status = "GAME_OVER"
)

// Player is the per-member record embedded in a room. Coins belong to the
// action-resolution layer; membership only initializes them.
type Player struct {
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
	Presence bool   `json:"presence"`
	Coins    int    `json:"coins"`
}

// Room is one game instance's authoritative state.
//
// PlayerOrder is the membership list: its element set must always equal the
// key set of Players, and Host must be one of its entries while it is
// non-empty.
type Room struct {
	Status      Status            `json:"status"`
	Host        UserID            `json:"host"`
	Mode        string            `json:"mode"`
	Players     map[UserID]Player `json:"players"`
	PlayerOrder []UserID          `json:"playerOrder"`
	Treasury    int               `json:"treasury"`
	CreatedAt   int64             `json:"createdAt"`
	EndedAt     int64             `json:"endedAt,omitempty"`
	Winner      string            `json:"winner,omitempty"`
}

// HasPlayer reports whether id is in the membership list.
func (r *Room) HasPlayer(id UserID) bool {
	for _, p := range r.PlayerOrder {
		if p == id {
			return true
		}
	}
	return false
}

// LobbyEntry is the denormalized discovery record for a room in LOBBY status.
type LobbyEntry struct {
	HostName    string `json:"hostName"`
	PlayerCount int    `json:"playerCount"`
	Mode        string `json:"mode"`
	Status      Status `json:"status"`
}

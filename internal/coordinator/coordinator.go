// Package coordinator owns room membership and lifecycle: creating rooms,
// admitting and removing players under concurrent access, migrating host
// authority, declaring attrition wins and keeping the public lobby directory
// in step with room state. All mutations go through the injected store port;
// the store's compare-and-retry transaction is the only synchronization
// primitive used.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parlor/internal/domain"
	"github.com/dkeye/parlor/internal/store"
)

const (
	roomsPath   = "rooms"
	lobbiesPath = "public_lobbies"

	codeAttempts = 8
)

type Coordinator struct {
	store store.Store
}

func New(st store.Store) *Coordinator {
	return &Coordinator{store: st}
}

func roomPath(code domain.RoomCode) string {
	return roomsPath + "/" + string(code)
}

func playerPath(code domain.RoomCode, id domain.UserID) string {
	return roomPath(code) + "/players/" + string(id)
}

func lobbyPath(code domain.RoomCode) string {
	return lobbiesPath + "/" + string(code)
}

// CreateRoom allocates a fresh code and writes the initial room together with
// its lobby entry in one atomic commit. The caller becomes host and sole
// member. Codes are regenerated on collision, bounded by codeAttempts.
func (c *Coordinator) CreateRoom(ctx context.Context, id domain.UserID, name, mode string) (domain.RoomCode, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := newRoomCode()

		existing, err := c.store.Get(ctx, roomPath(code))
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
		if existing != nil {
			continue
		}

		room := domain.Room{
			Status: domain.StatusLobby,
			Host:   id,
			Mode:   mode,
			Players: map[domain.UserID]domain.Player{
				id: {Name: name, Ready: true, Presence: true, Coins: 0},
			},
			PlayerOrder: []domain.UserID{id},
			Treasury:    0,
			CreatedAt:   time.Now().UnixMilli(),
		}
		entry := domain.LobbyEntry{
			HostName:    name,
			PlayerCount: 1,
			Mode:        mode,
			Status:      domain.StatusLobby,
		}

		roomV, err := store.Encode(room)
		if err != nil {
			return "", fmt.Errorf("encode room: %w", err)
		}
		entryV, err := store.Encode(entry)
		if err != nil {
			return "", fmt.Errorf("encode lobby entry: %w", err)
		}

		if err := c.store.Update(ctx, map[string]store.Value{
			roomPath(code):  roomV,
			lobbyPath(code): entryV,
		}); err != nil {
			return "", fmt.Errorf("create room: %w", err)
		}

		log.Info().Str("module", "coordinator").Str("code", string(code)).Str("host", string(id)).Str("mode", mode).Msg("room created")
		return code, nil
	}

	return "", domain.ErrCodeSpaceExhausted
}

// JoinRoom admits id into a lobby-status room. The player record is written
// first, membership is then appended to playerOrder in a transaction, and the
// lobby entry's player count is derived from the transaction's committed
// result so concurrent joins can never publish a stale count.
func (c *Coordinator) JoinRoom(ctx context.Context, id domain.UserID, name string, code domain.RoomCode) error {
	cur, err := c.store.Get(ctx, roomPath(code))
	if err != nil {
		return fmt.Errorf("read room: %w", err)
	}
	if cur == nil {
		return domain.ErrRoomNotFound
	}

	var room domain.Room
	if err := store.Decode(cur, &room); err != nil {
		return fmt.Errorf("decode room: %w", err)
	}
	if room.Status != domain.StatusLobby {
		return domain.ErrRoomStarted
	}

	playerV, err := store.Encode(domain.Player{Name: name, Ready: true, Presence: true, Coins: 0})
	if err != nil {
		return fmt.Errorf("encode player: %w", err)
	}
	if err := c.store.Update(ctx, map[string]store.Value{playerPath(code, id): playerV}); err != nil {
		return fmt.Errorf("write player: %w", err)
	}

	committed, err := c.store.Transact(ctx, roomPath(code)+"/playerOrder", func(v store.Value) (store.Value, error) {
		var order []domain.UserID
		if err := store.Decode(v, &order); err != nil {
			return nil, err
		}
		for _, existing := range order {
			// Idempotent under retried joins: never append twice.
			if existing == id {
				return store.Encode(order)
			}
		}
		return store.Encode(append(order, id))
	})
	if err != nil {
		return fmt.Errorf("append to player order: %w", err)
	}

	var order []domain.UserID
	if err := store.Decode(committed, &order); err != nil {
		return fmt.Errorf("decode player order: %w", err)
	}

	// Writes to the lobby entry are not ordered relative to other joins'
	// writes, so only ever move the published count forward.
	target := len(order)
	_, err = c.store.Transact(ctx, lobbyPath(code)+"/playerCount", func(cur store.Value) (store.Value, error) {
		var n int
		if err := store.Decode(cur, &n); err != nil {
			return nil, err
		}
		if n >= target {
			return cur, nil
		}
		return target, nil
	})
	if err != nil {
		return fmt.Errorf("update lobby count: %w", err)
	}

	log.Info().Str("module", "coordinator").Str("code", string(code)).Str("user", string(id)).Int("players", len(order)).Msg("player joined")
	return nil
}

type leaveOutcome int

const (
	leaveNoop leaveOutcome = iota
	leaveDeleted
	leaveGameOver
	leaveLobby
	leavePlaying
)

// LeaveRoom removes id from the room inside a single whole-document
// transaction, so membership, host migration and the attrition win condition
// are always decided against the state actually being committed. Lobby-entry
// consequences are compensating writes issued after the commit.
func (c *Coordinator) LeaveRoom(ctx context.Context, id domain.UserID, code domain.RoomCode) error {
	var (
		outcome   leaveOutcome
		remaining int
	)

	_, err := c.store.Transact(ctx, roomPath(code), func(cur store.Value) (store.Value, error) {
		outcome = leaveNoop
		remaining = 0

		if cur == nil {
			return nil, nil
		}

		var room domain.Room
		if err := store.Decode(cur, &room); err != nil {
			return nil, err
		}

		// A finished room's membership is frozen.
		if room.Status == domain.StatusGameOver || !room.HasPlayer(id) {
			return cur, nil
		}

		delete(room.Players, id)
		order := room.PlayerOrder[:0]
		for _, p := range room.PlayerOrder {
			if p != id {
				order = append(order, p)
			}
		}
		room.PlayerOrder = order
		remaining = len(order)

		if remaining == 0 {
			outcome = leaveDeleted
			return nil, nil
		}

		if !room.HasPlayer(room.Host) {
			room.Host = room.PlayerOrder[0]
		}

		switch {
		case remaining == 1 && room.Status == domain.StatusPlaying:
			survivor := room.PlayerOrder[0]
			room.Status = domain.StatusGameOver
			room.Winner = room.Players[survivor].Name
			room.EndedAt = time.Now().UnixMilli()
			outcome = leaveGameOver
		case room.Status == domain.StatusLobby:
			outcome = leaveLobby
		default:
			outcome = leavePlaying
		}

		return store.Encode(room)
	})
	if err != nil {
		return fmt.Errorf("leave room: %w", err)
	}

	switch outcome {
	case leaveDeleted, leaveGameOver:
		if err := c.store.Update(ctx, map[string]store.Value{lobbyPath(code): nil}); err != nil {
			return fmt.Errorf("remove lobby entry: %w", err)
		}
	case leaveLobby:
		if err := c.store.Update(ctx, map[string]store.Value{
			lobbyPath(code) + "/playerCount": remaining,
		}); err != nil {
			return fmt.Errorf("update lobby count: %w", err)
		}
	}

	log.Info().Str("module", "coordinator").Str("code", string(code)).Str("user", string(id)).Int("remaining", remaining).Msg("player left")
	return nil
}

// SetupPresence registers a presence=false disconnect hook on conn and marks
// the player present. Hooks are connection-scoped, so this must be called
// again on every reconnect. The presence flip is a transaction over the
// player node: if the player has been removed concurrently it stays removed.
func (c *Coordinator) SetupPresence(ctx context.Context, conn store.Connection, code domain.RoomCode, id domain.UserID) error {
	conn.OnDisconnect(playerPath(code, id)+"/presence", false)

	_, err := c.store.Transact(ctx, playerPath(code, id), func(cur store.Value) (store.Value, error) {
		if cur == nil {
			return nil, nil
		}
		var p domain.Player
		if err := store.Decode(cur, &p); err != nil {
			return nil, err
		}
		p.Presence = true
		return store.Encode(p)
	})
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

// GetRoom reads one room snapshot.
func (c *Coordinator) GetRoom(ctx context.Context, code domain.RoomCode) (*domain.Room, error) {
	v, err := c.store.Get(ctx, roomPath(code))
	if err != nil {
		return nil, fmt.Errorf("read room: %w", err)
	}
	if v == nil {
		return nil, domain.ErrRoomNotFound
	}
	var room domain.Room
	if err := store.Decode(v, &room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}

// WatchRoom pushes the room's state to fn on every committed change, starting
// with the current snapshot. A nil room means the document is absent. The
// returned cancel is idempotent.
func (c *Coordinator) WatchRoom(code domain.RoomCode, fn func(*domain.Room)) (cancel func()) {
	return c.store.Subscribe(roomPath(code), func(v store.Value) {
		if v == nil {
			fn(nil)
			return
		}
		var room domain.Room
		if err := store.Decode(v, &room); err != nil {
			log.Error().Err(err).Str("module", "coordinator").Str("code", string(code)).Msg("bad room snapshot")
			return
		}
		fn(&room)
	})
}

// Lobbies returns the public lobby directory.
func (c *Coordinator) Lobbies(ctx context.Context) (map[domain.RoomCode]domain.LobbyEntry, error) {
	v, err := c.store.Get(ctx, lobbiesPath)
	if err != nil {
		return nil, fmt.Errorf("read lobbies: %w", err)
	}
	out := make(map[domain.RoomCode]domain.LobbyEntry)
	if err := store.Decode(v, &out); err != nil {
		return nil, fmt.Errorf("decode lobbies: %w", err)
	}
	return out, nil
}

// WatchLobby pushes the lobby directory to fn on every change.
func (c *Coordinator) WatchLobby(fn func(map[domain.RoomCode]domain.LobbyEntry)) (cancel func()) {
	return c.store.Subscribe(lobbiesPath, func(v store.Value) {
		out := make(map[domain.RoomCode]domain.LobbyEntry)
		if err := store.Decode(v, &out); err != nil {
			log.Error().Err(err).Str("module", "coordinator").Msg("bad lobby snapshot")
			return
		}
		fn(out)
	})
}

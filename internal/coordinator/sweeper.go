package coordinator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parlor/internal/domain"
	"github.com/dkeye/parlor/internal/store"
)

// RunSweeper periodically heals the eventual-consistency gaps this layer
// accepts: lobby entries whose room is gone or no longer joinable (a crash
// between a room transaction and its compensating lobby write can leave one
// behind), and finished rooms past their retention window. gameOverTTL <= 0
// retains finished rooms indefinitely.
func (c *Coordinator) RunSweeper(ctx context.Context, interval, gameOverTTL time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx, gameOverTTL)
		}
	}
}

func (c *Coordinator) sweep(ctx context.Context, gameOverTTL time.Duration) {
	roomsV, err := c.store.Get(ctx, roomsPath)
	if err != nil {
		log.Error().Err(err).Str("module", "coordinator.sweep").Msg("read rooms")
		return
	}
	lobbiesV, err := c.store.Get(ctx, lobbiesPath)
	if err != nil {
		log.Error().Err(err).Str("module", "coordinator.sweep").Msg("read lobbies")
		return
	}

	rooms := make(map[domain.RoomCode]domain.Room)
	if err := store.Decode(roomsV, &rooms); err != nil {
		log.Error().Err(err).Str("module", "coordinator.sweep").Msg("decode rooms")
		return
	}
	lobbies := make(map[domain.RoomCode]domain.LobbyEntry)
	if err := store.Decode(lobbiesV, &lobbies); err != nil {
		log.Error().Err(err).Str("module", "coordinator.sweep").Msg("decode lobbies")
		return
	}

	writes := make(map[string]store.Value)
	now := time.Now()

	for code, room := range rooms {
		switch {
		case len(room.PlayerOrder) == 0:
			writes[roomPath(code)] = nil
		case room.Status == domain.StatusGameOver && gameOverTTL > 0 &&
			now.Sub(time.UnixMilli(room.EndedAt)) > gameOverTTL:
			writes[roomPath(code)] = nil
		}
	}

	for code := range lobbies {
		room, ok := rooms[code]
		if !ok || room.Status != domain.StatusLobby || len(room.PlayerOrder) == 0 {
			writes[lobbyPath(code)] = nil
		}
	}

	if len(writes) == 0 {
		return
	}
	if err := c.store.Update(ctx, writes); err != nil {
		log.Error().Err(err).Str("module", "coordinator.sweep").Msg("apply sweep")
		return
	}
	log.Info().Str("module", "coordinator.sweep").Int("removed", len(writes)).Msg("swept stale documents")
}

package memstore

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parlor/internal/store"
)

// conn is one transport connection's view of the store. It only carries the
// disconnect hooks registered against it.
type conn struct {
	s *Memstore

	mu     sync.Mutex
	hooks  []hook
	closed bool
}

type hook struct {
	segs  []string
	value store.Value
}

func (s *Memstore) Connect() store.Connection {
	return &conn{s: s}
}

func (c *conn) OnDisconnect(path string, value store.Value) {
	norm, err := normalize(value)
	if err != nil {
		log.Error().Err(err).Str("module", "store.mem").Str("path", path).Msg("bad disconnect hook value")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.hooks = append(c.hooks, hook{segs: splitPath(path), value: norm})
}

// Close fires each pending hook once. A hook whose parent node has been
// removed in the meantime is skipped: a late presence write must not
// resurrect a deleted room or player.
func (c *conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	for _, h := range hooks {
		c.s.fireHook(h)
	}
}

func (s *Memstore) fireHook(h hook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(h.segs) > 0 {
		parent := h.segs[:len(h.segs)-1]
		if getNode(s.root, parent) == nil {
			log.Debug().Str("module", "store.mem").Strs("path", h.segs).Msg("disconnect hook target gone, skipping")
			return
		}
	}
	s.applyLocked(map[string]store.Value{joinPath(h.segs): h.value})
}

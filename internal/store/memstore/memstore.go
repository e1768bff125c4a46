// Package memstore is the in-process implementation of the shared room store:
// one JSON document tree guarded by a RWMutex, versioned per document for
// optimistic transactions, with coalescing push subscriptions and
// connection-scoped disconnect hooks.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parlor/internal/domain"
	"github.com/dkeye/parlor/internal/store"
)

const defaultTxnAttempts = 32

type Memstore struct {
	mu       sync.RWMutex
	root     map[string]any
	versions map[string]uint64

	subMu   sync.Mutex
	subs    map[int]*subscriber
	nextSub int

	txnAttempts int
}

// Option configures a Memstore.
type Option func(*Memstore)

// WithTxnAttempts caps the optimistic retry loop of Transact.
func WithTxnAttempts(n int) Option {
	return func(s *Memstore) {
		if n > 0 {
			s.txnAttempts = n
		}
	}
}

func New(opts ...Option) *Memstore {
	s := &Memstore{
		root:        make(map[string]any),
		versions:    make(map[string]uint64),
		subs:        make(map[int]*subscriber),
		txnAttempts: defaultTxnAttempts,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Memstore) Get(ctx context.Context, path string) (store.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(getNode(s.root, splitPath(path))), nil
}

func (s *Memstore) Update(ctx context.Context, writes map[string]store.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	norm := make(map[string]store.Value, len(writes))
	for p, v := range writes {
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		norm[p] = nv
	}
	s.mu.Lock()
	s.applyLocked(norm)
	s.mu.Unlock()
	return nil
}

func (s *Memstore) Transact(ctx context.Context, path string, fn store.TxnFunc) (store.Value, error) {
	segs := splitPath(path)
	key := docKey(segs)

	for attempt := 0; attempt < s.txnAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.mu.RLock()
		ver := s.versions[key]
		cur := deepCopy(getNode(s.root, segs))
		s.mu.RUnlock()

		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		norm, err := normalize(next)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.versions[key] != ver {
			s.mu.Unlock()
			continue
		}
		s.applyLocked(map[string]store.Value{path: norm})
		s.mu.Unlock()
		return norm, nil
	}

	log.Warn().Str("module", "store.mem").Str("path", path).Int("attempts", s.txnAttempts).Msg("transaction retries exhausted")
	return nil, domain.ErrConflict
}

// applyLocked commits writes, bumps document versions and notifies overlapping
// subscribers in commit order. Caller holds s.mu.
func (s *Memstore) applyLocked(writes map[string]store.Value) {
	paths := make([][]string, 0, len(writes))
	for p, v := range writes {
		segs := splitPath(p)
		setNode(s.root, segs, v)
		s.bumpLocked(segs)
		paths = append(paths, segs)
	}

	s.subMu.Lock()
	for _, sub := range s.subs {
		touched := false
		for _, segs := range paths {
			if pathsOverlap(sub.segs, segs) {
				touched = true
				break
			}
		}
		if touched {
			sub.offer(deepCopy(getNode(s.root, sub.segs)))
		}
	}
	s.subMu.Unlock()
}

func (s *Memstore) bumpLocked(segs []string) {
	key := docKey(segs)
	if len(segs) >= 2 {
		s.versions[key]++
		return
	}
	// Write above document granularity: invalidate every document below it.
	for k := range s.versions {
		if k == key || strings.HasPrefix(k, key+"/") {
			s.versions[k]++
		}
	}
	s.versions[key]++
}

func (s *Memstore) Subscribe(path string, fn func(store.Value)) func() {
	sub := &subscriber{
		segs: splitPath(path),
		ch:   make(chan store.Value, 1),
		done: make(chan struct{}),
		fn:   fn,
	}

	s.mu.RLock()
	snap := deepCopy(getNode(s.root, sub.segs))
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	sub.offer(snap)
	s.subMu.Unlock()
	s.mu.RUnlock()

	go sub.loop()

	return func() {
		sub.once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(sub.done)
		})
	}
}

type subscriber struct {
	segs []string
	ch   chan store.Value
	done chan struct{}
	fn   func(store.Value)
	once sync.Once
}

// offer replaces any undelivered snapshot so a slow consumer only ever sees
// the latest committed state.
func (sub *subscriber) offer(v store.Value) {
	for {
		select {
		case sub.ch <- v:
			return
		default:
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}

func (sub *subscriber) loop() {
	for {
		select {
		case <-sub.done:
			return
		case v := <-sub.ch:
			sub.fn(v)
		}
	}
}

// normalize round-trips v through the JSON codec so the tree only ever holds
// plain JSON values, detached from caller-owned memory.
func normalize(v store.Value) (store.Value, error) {
	if v == nil {
		return nil, nil
	}
	return store.Encode(v)
}

package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/parlor/internal/domain"
	"github.com/dkeye/parlor/internal/store"
)

func TestGetAbsentReturnsNil(t *testing.T) {
	s := New()
	v, err := s.Get(context.Background(), "rooms/ABC123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Errorf("got %v, want nil for absent node", v)
	}
}

func TestUpdateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Update(ctx, map[string]store.Value{
		"rooms/ABC123/host": "u1",
		"lobbies/ABC123":    map[string]any{"playerCount": 1},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	v, err := s.Get(ctx, "rooms/ABC123/host")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "u1" {
		t.Errorf("host = %v, want u1", v)
	}

	v, err = s.Get(ctx, "lobbies/ABC123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	node, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("lobby node is %T, want map", v)
	}
	if node["playerCount"] != float64(1) {
		t.Errorf("playerCount = %v, want 1", node["playerCount"])
	}
}

func TestDeletePrunesEmptyParents(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Update(ctx, map[string]store.Value{"rooms/ABC123/players/u1/presence": true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Update(ctx, map[string]store.Value{"rooms/ABC123/players/u1": nil}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	v, err := s.Get(ctx, "rooms")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Errorf("rooms = %v, want fully pruned tree", v)
	}
}

func TestTransactReturnsCommittedValue(t *testing.T) {
	s := New()
	ctx := context.Background()

	v, err := s.Transact(ctx, "rooms/ABC123/playerOrder", func(cur store.Value) (store.Value, error) {
		if cur != nil {
			t.Errorf("first transaction saw %v, want nil", cur)
		}
		return []any{"u1"}, nil
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	order, ok := v.([]any)
	if !ok || len(order) != 1 || order[0] != "u1" {
		t.Errorf("committed = %v, want [u1]", v)
	}
}

func TestTransactAbortLeavesStateUntouched(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := s.Transact(ctx, "rooms/ABC123", func(cur store.Value) (store.Value, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	v, _ := s.Get(ctx, "rooms/ABC123")
	if v != nil {
		t.Errorf("aborted transaction wrote %v", v)
	}
}

func TestTransactConcurrentAppendsLoseNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			_, err := s.Transact(ctx, "rooms/ABC123/playerOrder", func(cur store.Value) (store.Value, error) {
				var order []string
				if err := store.Decode(cur, &order); err != nil {
					return nil, err
				}
				return store.Encode(append(order, id))
			})
			if err != nil {
				t.Errorf("Transact: %v", err)
			}
		}(i)
	}
	wg.Wait()

	v, err := s.Get(ctx, "rooms/ABC123/playerOrder")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var order []string
	if err := store.Decode(v, &order); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(order) != writers {
		t.Fatalf("len(order) = %d, want %d", len(order), writers)
	}
	seen := make(map[string]bool)
	for _, id := range order {
		if seen[id] {
			t.Errorf("duplicate entry %q", id)
		}
		seen[id] = true
	}
}

func TestTransactRetriesExhaustedSurfacesConflict(t *testing.T) {
	s := New(WithTxnAttempts(2))
	ctx := context.Background()

	// Every attempt invalidates its own read before committing.
	_, err := s.Transact(ctx, "rooms/ABC123/treasury", func(cur store.Value) (store.Value, error) {
		if uerr := s.Update(ctx, map[string]store.Value{"rooms/ABC123/host": "u1"}); uerr != nil {
			return nil, uerr
		}
		return 1, nil
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func waitFor(t *testing.T, ch <-chan store.Value) store.Value {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeDeliversInitialAndSubsequentSnapshots(t *testing.T) {
	s := New()
	ctx := context.Background()

	got := make(chan store.Value, 16)
	cancel := s.Subscribe("rooms/ABC123", func(v store.Value) {
		got <- v
	})
	defer cancel()

	if v := waitFor(t, got); v != nil {
		t.Errorf("initial snapshot = %v, want nil", v)
	}

	if err := s.Update(ctx, map[string]store.Value{"rooms/ABC123/host": "u1"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	v := waitFor(t, got)
	node, ok := v.(map[string]any)
	if !ok || node["host"] != "u1" {
		t.Errorf("snapshot = %v, want {host: u1}", v)
	}

	// Deleting the document pushes a nil snapshot.
	if err := s.Update(ctx, map[string]store.Value{"rooms/ABC123": nil}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if v := waitFor(t, got); v != nil {
		t.Errorf("post-delete snapshot = %v, want nil", v)
	}
}

func TestSubscribeFieldSeesWholeDocWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	got := make(chan store.Value, 16)
	cancel := s.Subscribe("rooms/ABC123/status", func(v store.Value) {
		got <- v
	})
	defer cancel()
	waitFor(t, got) // initial nil

	if err := s.Update(ctx, map[string]store.Value{
		"rooms/ABC123": map[string]any{"status": "LOBBY", "host": "u1"},
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v := waitFor(t, got); v != "LOBBY" {
		t.Errorf("status snapshot = %v, want LOBBY", v)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s := New()
	cancel := s.Subscribe("rooms/ABC123", func(store.Value) {})
	cancel()
	cancel()
}

func TestDisconnectHookFiresOnClose(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Update(ctx, map[string]store.Value{
		"rooms/ABC123/players/u1": map[string]any{"name": "Alice", "presence": true},
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	conn := s.Connect()
	conn.OnDisconnect("rooms/ABC123/players/u1/presence", false)
	conn.Close()

	v, _ := s.Get(ctx, "rooms/ABC123/players/u1/presence")
	if v != false {
		t.Errorf("presence = %v, want false after disconnect", v)
	}
}

func TestDisconnectHookSkippedWhenTargetGone(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Update(ctx, map[string]store.Value{
		"rooms/ABC123/players/u1": map[string]any{"name": "Alice", "presence": true},
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	conn := s.Connect()
	conn.OnDisconnect("rooms/ABC123/players/u1/presence", false)

	// Player removed before the connection drops: the hook must not
	// resurrect the node.
	if err := s.Update(ctx, map[string]store.Value{"rooms/ABC123": nil}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	conn.Close()

	v, _ := s.Get(ctx, "rooms")
	if v != nil {
		t.Errorf("rooms = %v, want still absent after late hook", v)
	}
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	s := New()
	conn := s.Connect()
	conn.OnDisconnect("rooms/ABC123/players/u1/presence", false)
	conn.Close()
	conn.Close()
}

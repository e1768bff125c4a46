package session

import (
	"testing"

	"github.com/dkeye/parlor/internal/domain"
)

func TestProfileDefaults(t *testing.T) {
	r := NewRegistry()
	p := r.Profile("u1")
	if p.Name != "" {
		t.Errorf("name = %q, want empty", p.Name)
	}
	if p.Mode != domain.DefaultMode {
		t.Errorf("mode = %q, want %q", p.Mode, domain.DefaultMode)
	}
}

func TestSetProfilePartialUpdate(t *testing.T) {
	r := NewRegistry()
	r.SetProfile("u1", "Alice", "EXPANSION")

	// Empty fields leave the stored value alone.
	p := r.SetProfile("u1", "", "")
	if p.Name != "Alice" || p.Mode != "EXPANSION" {
		t.Errorf("profile = %+v, want Alice/EXPANSION preserved", p)
	}

	p = r.SetProfile("u1", "Bob", "")
	if p.Name != "Bob" || p.Mode != "EXPANSION" {
		t.Errorf("profile = %+v, want Bob/EXPANSION", p)
	}
}

func TestReset(t *testing.T) {
	r := NewRegistry()
	r.SetProfile("u1", "Alice", "EXPANSION")
	r.Reset("u1")

	p := r.Profile("u1")
	if p.Name != "" || p.Mode != domain.DefaultMode {
		t.Errorf("profile = %+v, want defaults after reset", p)
	}
}

func TestNewIdentityIsUnique(t *testing.T) {
	a := NewIdentity()
	b := NewIdentity()
	if a == b {
		t.Error("two identities collided")
	}
	if a == "" {
		t.Error("identity is empty")
	}
}

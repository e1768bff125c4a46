package domain

import "errors"

const (
	MaxNameLen = 36

	// DefaultMode is the base game variant used until a profile chooses one.
	DefaultMode = "BASE"
)

var (
	ErrNameTooLong = errors.New("name too long")
	ErrNameEmpty   = errors.New("name empty")
)

// Profile is the mutable local part of a session: what the player wants to be
// called and which variant they want to play. Identity itself is assigned by
// the transport layer and never changes.
type Profile struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// NewProfile returns an empty profile with the default mode.
func NewProfile() Profile {
	return Profile{Mode: DefaultMode}
}

// ValidateName rejects names the lobby would render badly.
func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

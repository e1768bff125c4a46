package coordinator

import (
	"crypto/rand"

	"github.com/dkeye/parlor/internal/domain"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// newRoomCode generates a short human-typeable room code. Uniqueness is
// checked by the caller against the store before use.
func newRoomCode() domain.RoomCode {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, codeLength)
	for i := range out {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return domain.RoomCode(out)
}

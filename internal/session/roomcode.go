package session

import (
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
)

// Room codes are WORD-NNN: an uppercase word from a small fixed list plus
// a 0-999 number. The space is intentionally small and human-shareable;
// collisions are handled at creation with a conditional write plus retry.
var codeWords = []string{
	"FAITH", "GRACE", "MERCY", "GLORY", "LIGHT",
	"PEACE", "TRUTH", "MANNA", "ANGEL", "PSALM",
}

var roomCodePattern = regexp.MustCompile(`^[A-Z]+-\d{1,4}$`)

func newRoomCode() string {
	return fmt.Sprintf("%s-%d", codeWords[rand.Intn(len(codeWords))], rand.Intn(1000))
}

// ValidRoomCode reports whether code matches the WORD-NNN format. Format
// checking belongs to the input edge (handlers), not the session itself.
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// NormalizeRoomCode uppercases and trims user input.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RoomCodeFromURL extracts a room code from a share link's "room" query
// parameter. Returns "" when the URL carries no usable code.
func RoomCodeFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	code := NormalizeRoomCode(u.Query().Get("room"))
	if !ValidRoomCode(code) {
		return ""
	}
	return code
}

package domain

import (
	"math/rand"
	"regexp"
	"strings"
)

// MaxNameLength is the longest display name, in runes
const MaxNameLength = 12

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,8}$`)

// Avatars are assigned at random when a player joins
var Avatars = []string{
	"🦊", "🐸", "🐼", "🦁", "🐯", "🐨", "🐙", "🦄", "🐲", "🦖",
	"🐧", "🦉", "🐢", "🦀", "🐝", "🦋", "🐬", "🦩", "🐻", "🐰",
}

// SanitizeName trims a display name, caps its length and strips angle brackets.
// An empty result means the name is invalid.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	name = strings.NewReplacer("<", "", ">", "").Replace(name)
	return strings.TrimSpace(name)
}

// NormalizeRoomCode upper-cases and trims a room code typed by a player
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRoomCode reports whether code is a well-formed, normalized room code
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// RandomAvatar picks an avatar glyph
func RandomAvatar() string {
	return Avatars[rand.Intn(len(Avatars))]
}

package app

import "math/rand"

// RoomCodeWords are the words handed out as room codes when none are configured.
// Every entry must be a valid room code: 4-8 letters or digits.
var RoomCodeWords = []string{
	// Food
	"PIZZA", "TACO", "WAFFLE", "BAGEL", "NACHO",
	"PICKLE", "MUFFIN", "DONUT", "NOODLE", "BURRITO",

	// Animals
	"LLAMA", "GOOSE", "OTTER", "PANDA", "WALRUS",
	"SLOTH", "BADGER", "FERRET", "PENGUIN", "HAMSTER",

	// Things
	"KAZOO", "BANJO", "YOYO", "DISCO", "ROCKET",
	"TOASTER", "PONCHO", "GADGET", "JUKEBOX", "CONFETTI",

	// Nonsense
	"BONKERS", "ZIGZAG", "WOBBLE", "BLOOP", "SNAZZY",
	"GIGGLE", "HOOPLA", "KERFUFFL", "RUCKUS", "ZANY",
}

// pickWord returns a random word from words that taken does not reject, or ""
func pickWord(words []string, taken func(string) bool) string {
	if len(words) == 0 {
		return ""
	}
	// Start at a random offset and walk the list once
	start := rand.Intn(len(words))
	for i := range words {
		w := words[(start+i)%len(words)]
		if !taken(w) {
			return w
		}
	}
	return ""
}

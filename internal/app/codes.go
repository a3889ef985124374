package app

import (
	"crypto/rand"
	"errors"
	mrand "math/rand"

	"trashtalk/internal/domain"
)

// DefaultRoomCodeLength is the default length for generated room codes
const DefaultRoomCodeLength = 4

// RoomCodeChars are characters used for room codes (no ambiguous chars)
const RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ErrNoRoomCode is returned when no free room code could be found
var ErrNoRoomCode = errors.New("failed to generate unique room code")

// CodeGenerator hands out room codes: half the time a free word, otherwise random characters
type CodeGenerator struct {
	length int
	words  []string
}

// NewCodeGenerator creates a generator. Words that are not valid room codes are dropped;
// no words means RoomCodeWords.
func NewCodeGenerator(length int, words []string) *CodeGenerator {
	if length < 4 || length > 8 {
		length = DefaultRoomCodeLength
	}
	if len(words) == 0 {
		words = RoomCodeWords
	}

	valid := make([]string, 0, len(words))
	for _, w := range words {
		w = domain.NormalizeRoomCode(w)
		if domain.ValidRoomCode(w) {
			valid = append(valid, w)
		}
	}
	return &CodeGenerator{length: length, words: valid}
}

// Generate returns a code that taken does not report as in use
func (g *CodeGenerator) Generate(taken func(string) bool) (string, error) {
	if len(g.words) > 0 && mrand.Intn(2) == 0 {
		if w := pickWord(g.words, taken); w != "" {
			return w, nil
		}
	}

	for attempts := 0; attempts < 10; attempts++ {
		code := g.randomCode()
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrNoRoomCode
}

// randomCode generates a random room code
func (g *CodeGenerator) randomCode() string {
	b := make([]byte, g.length)
	rand.Read(b)

	code := make([]byte, g.length)
	for i := range code {
		code[i] = RoomCodeChars[int(b[i])%len(RoomCodeChars)]
	}

	return string(code)
}

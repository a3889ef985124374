package domain

import "errors"

// ErrorKind classifies a rejected intent. The gateway decides from the kind whether the
// rejection is surfaced to the client or dropped silently.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthorization
	KindCapacity
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindCapacity:
		return "capacity"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a rejected intent. Message is safe to show to players.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of a rejection, or 0 if err is not a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// MessageOf returns the player-facing message of a rejection.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong"
}

// Validation rejections
var (
	ErrInvalidName     = newError(KindValidation, "Enter a valid name!")
	ErrInvalidRoomCode = newError(KindValidation, "Invalid room code!")
	ErrNameTaken       = newError(KindValidation, "Name already taken!")
	ErrGameInProgress  = newError(KindValidation, "Game already in progress!")
	ErrAlreadyInRoom   = newError(KindValidation, "You are already in a game!")
	ErrInvalidMessage  = newError(KindValidation, "Invalid message!")
	ErrRateLimited     = newError(KindValidation, "Slow down! Too many requests.")
	ErrRoomExists      = newError(KindValidation, "Room code already in use")
)

// Capacity rejections
var (
	ErrRoomFull         = newError(KindCapacity, "Room is full!")
	ErrNotEnoughPlayers = newError(KindCapacity, "Not enough players!")
)

// Not-found rejections
var (
	ErrRoomNotFound    = newError(KindNotFound, "Room not found! Check the code.")
	ErrPlayerNotFound  = newError(KindNotFound, "Player not found")
	ErrSessionNotFound = newError(KindNotFound, "Session expired or game ended")
	ErrNoSessionToken  = newError(KindNotFound, "No session token")
)

// Authorization rejections. These never reach the client.
var (
	ErrNotHost          = newError(KindAuthorization, "only the host can do that")
	ErrNotJudge         = newError(KindAuthorization, "only the judge can do that")
	ErrNotRevealer      = newError(KindAuthorization, "not allowed to reveal")
	ErrNotInRoom        = newError(KindAuthorization, "not in a room")
	ErrInvalidState     = newError(KindAuthorization, "invalid action for current state")
	ErrJudgeCannotPlay  = newError(KindAuthorization, "the judge does not submit")
	ErrAlreadySubmitted = newError(KindAuthorization, "already submitted this round")
	ErrWrongCardCount   = newError(KindAuthorization, "wrong number of cards")
	ErrInvalidCard      = newError(KindAuthorization, "card not in hand")
	ErrInvalidPick      = newError(KindAuthorization, "no such submission")
	ErrRevealIncomplete = newError(KindAuthorization, "not all cards revealed")
)

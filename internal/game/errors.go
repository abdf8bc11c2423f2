package game

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a command was rejected.
type ErrorKind int

const (
	// KindValidation covers malformed or out-of-phase input.
	KindValidation ErrorKind = iota
	// KindRuleViolation covers commands the game rules forbid right now.
	KindRuleViolation
	KindSupplyExhausted
	KindAmbiguousReference
	KindNoSuchCard
	KindDuplicateJoin
	KindNotAdmin
)

var kindNames = map[ErrorKind]string{
	KindValidation:         "VALIDATION",
	KindRuleViolation:      "RULE_VIOLATION",
	KindSupplyExhausted:    "SUPPLY_EXHAUSTED",
	KindAmbiguousReference: "AMBIGUOUS_REFERENCE",
	KindNoSuchCard:         "NO_SUCH_CARD",
	KindDuplicateJoin:      "DUPLICATE_JOIN",
	KindNotAdmin:           "NOT_ADMIN",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// Error is a rejected command. Message is the plain-language text shown to players.
type Error struct {
	Kind    ErrorKind
	Message string
	// Matches lists the candidate cards of an ambiguous reference.
	Matches []string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a game error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind == kind
	}
	return false
}

// ErrNoGame is returned by the Manager for rooms without an active game.
var ErrNoGame = errors.New("no games are active in this room")

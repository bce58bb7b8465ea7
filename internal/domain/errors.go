package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for reporting.
type ErrorKind int

const (
	KindRejected ErrorKind = iota + 1
	KindNotFound
	KindCollaborator
	KindInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindNotFound:
		return "not_found"
	case KindCollaborator:
		return "collaborator"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind and code so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func Reject(code, msg string) *Error {
	return &Error{Kind: KindRejected, Code: code, Message: msg}
}

func Invariant(msg string, args ...any) *Error {
	return &Error{Kind: KindInvariant, Code: "invariant_violation", Message: fmt.Sprintf(msg, args...)}
}

func Collaborator(code, msg string, err error) *Error {
	return &Error{Kind: KindCollaborator, Code: code, Message: msg, Err: err}
}

var (
	ErrRoomNotFound     = &Error{Kind: KindNotFound, Code: "room_not_found", Message: "room not found"}
	ErrNotFound         = &Error{Kind: KindNotFound, Code: "not_found", Message: "not found"}
	ErrRoomFull         = Reject("room_full", "room is full")
	ErrAlreadyPlaying   = Reject("already_playing", "a game is in progress")
	ErrNotPlaying       = Reject("not_playing", "no game in progress")
	ErrNotHost          = Reject("not_host", "only the host can do that")
	ErrNotMember        = Reject("not_member", "you are not in this room")
	ErrNotYourTurn      = Reject("not_your_turn", "it is not your turn")
	ErrWrongPhase       = Reject("wrong_phase", "action not allowed now")
	ErrInvalidAction    = Reject("invalid_action", "invalid action")
	ErrNotEnoughPlayers = Reject("not_enough_players", "not enough players")
	ErrUnknownGame      = Reject("unknown_game", "unknown game type")
	ErrTeamLimit        = Reject("team_limit", "team count out of range")
	ErrUnknownTeam      = Reject("unknown_team", "team does not exist")
	ErrUnknownAction    = Reject("unknown_action", "unknown action")
)

// KindOf returns the kind of err, defaulting to invariant for untyped errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInvariant
}

// Code returns a client-facing error code.
func Code(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal"
}

// PublicMessage returns text safe to show the originating actor.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// IsInvariant reports whether err is an explicit invariant violation.
func IsInvariant(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindInvariant
}

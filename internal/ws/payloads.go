package ws

import "encoding/json"

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// client → server
type CreateRoomPayload struct {
	Name       string `json:"name" validate:"max=48"`
	Capacity   int    `json:"capacity" validate:"min=0,max=64"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public unlisted"`
}

type RoomPayload struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
}

type SelectGamePayload struct {
	RoomID   string `json:"roomId" validate:"required,max=64"`
	GameType string `json:"gameType" validate:"required,max=32"`
}

type StartGamePayload struct {
	RoomID   string          `json:"roomId" validate:"required,max=64"`
	GameType string          `json:"gameType" validate:"max=32"`
	Options  json.RawMessage `json:"options"`
}

type GameActionPayload struct {
	RoomID string          `json:"roomId" validate:"required,max=64"`
	Action string          `json:"action" validate:"required,max=32"`
	Data   json.RawMessage `json:"data"`
}

type SetNamePayload struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	Name   string `json:"name" validate:"required,max=32"`
}

type TogglePayload struct {
	RoomID  string `json:"roomId" validate:"required,max=64"`
	Enabled bool   `json:"enabled"`
}

type TeamPayload struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	TeamID int    `json:"teamId" validate:"required,min=1"`
}

type AssignTeamPayload struct {
	RoomID  string `json:"roomId" validate:"required,max=64"`
	ActorID string `json:"actorId" validate:"required,max=64"`
	TeamID  int    `json:"teamId" validate:"required,min=1"`
}

// server → client
type WelcomePayload struct {
	ActorID       string `json:"actorId"`
	Name          string `json:"name"`
	Authenticated bool   `json:"authenticated"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

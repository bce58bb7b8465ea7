package domain

// AudienceKind scopes an outbound message.
type AudienceKind string

const (
	AudienceRoom  AudienceKind = "room"
	AudienceTeam  AudienceKind = "team"
	AudienceActor AudienceKind = "actor"
	AudienceLobby AudienceKind = "lobby"
)

type Audience struct {
	Kind    AudienceKind
	RoomID  string
	TeamID  int
	ActorID string
}

func RoomAudience(roomID string) Audience {
	return Audience{Kind: AudienceRoom, RoomID: roomID}
}

func TeamAudience(roomID string, teamID int) Audience {
	return Audience{Kind: AudienceTeam, RoomID: roomID, TeamID: teamID}
}

func ActorAudience(roomID, actorID string) Audience {
	return Audience{Kind: AudienceActor, RoomID: roomID, ActorID: actorID}
}

// Envelope is an outbound event with its audience attached.
type Envelope struct {
	Audience Audience
	Event    string
	Payload  any
}

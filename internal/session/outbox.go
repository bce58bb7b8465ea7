package session

import (
	"party_server/internal/domain"
	"party_server/internal/room"
)

// Deliverer is the transport side of every outbound envelope.
type Deliverer interface {
	Deliver(env domain.Envelope, recipients []string)
}

// outbox resolves audiences against the room's current membership. It is
// only used while the room lock is held.
type outbox struct {
	room *room.Room
	out  Deliverer
}

func (o *outbox) Room(event string, payload any) {
	o.out.Deliver(domain.Envelope{
		Audience: domain.RoomAudience(o.room.ID),
		Event:    event,
		Payload:  payload,
	}, o.room.MemberIDs())
}

func (o *outbox) Team(teamID int, event string, payload any) {
	members := o.room.TeamMemberIDs(teamID)
	if len(members) == 0 {
		return
	}
	o.out.Deliver(domain.Envelope{
		Audience: domain.TeamAudience(o.room.ID, teamID),
		Event:    event,
		Payload:  payload,
	}, members)
}

// Actor drops messages for actors who are not in the room.
func (o *outbox) Actor(actorID, event string, payload any) {
	if _, ok := o.room.Member(actorID); !ok {
		return
	}
	o.out.Deliver(domain.Envelope{
		Audience: domain.ActorAudience(o.room.ID, actorID),
		Event:    event,
		Payload:  payload,
	}, []string{actorID})
}

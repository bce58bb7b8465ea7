package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"party_server/internal/domain"
	"party_server/internal/logger"
	"party_server/internal/room"
	"party_server/internal/session"
)

var validate = validator.New()

const startTimeout = 10 * time.Second

// Router turns inbound frames into registry and session calls.
type Router struct {
	hub      *Hub
	rooms    *room.Registry
	sessions *session.Manager
}

func NewRouter(hub *Hub, rooms *room.Registry, sessions *session.Manager) *Router {
	return &Router{hub: hub, rooms: rooms, sessions: sessions}
}

// Connected greets a freshly registered client.
func (r *Router) Connected(c *Client) {
	r.hub.SendTo(c.ActorID, MsgWelcome, WelcomePayload{ActorID: c.ActorID, Name: c.Name, Authenticated: c.Identity != nil})
	r.hub.SendTo(c.ActorID, MsgRoomList, r.rooms.ListPublic())
}

// Disconnected removes the actor from its room. Its game keeps running.
func (r *Router) Disconnected(c *Client) {
	r.rooms.Disconnect(c.ActorID)
}

// Handle processes one inbound frame. Failures go back to the sender only.
func (r *Router) Handle(c *Client, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Type == "" {
		r.fail(c, "", domain.Reject("invalid_frame", "malformed message"))
		return
	}
	if !c.allow() {
		r.fail(c, f.Type, domain.Reject("rate_limited", "slow down"))
		return
	}
	if err := r.route(c, f); err != nil {
		r.fail(c, f.Type, err)
	}
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Reject("invalid_payload", "malformed payload")
	}
	if err := validate.Struct(dst); err != nil {
		return domain.Reject("invalid_payload", err.Error())
	}
	return nil
}

func (r *Router) route(c *Client, f Frame) error {
	switch f.Type {
	case MsgPing:
		r.hub.SendTo(c.ActorID, MsgPong, nil)
		return nil

	case MsgListRooms:
		r.hub.SendTo(c.ActorID, MsgRoomList, r.rooms.ListPublic())
		return nil

	case MsgCreateRoom:
		var p CreateRoomPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		_, err := r.rooms.Create(c.Actor(), p.Name, p.Capacity, room.Visibility(p.Visibility))
		return err

	case MsgJoinRoom:
		var p RoomPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		_, err := r.rooms.Join(p.RoomID, c.Actor())
		return err

	case MsgLeaveRoom:
		var p RoomPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		if _, err := r.rooms.Leave(p.RoomID, c.ActorID); err != nil {
			return err
		}
		r.hub.SendTo(c.ActorID, MsgRoomList, r.rooms.ListPublic())
		return nil

	case MsgSelectGame:
		var p SelectGamePayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		_, err := r.rooms.SelectGame(p.RoomID, c.ActorID, domain.GameType(p.GameType))
		return err

	case MsgStartGame:
		var p StartGamePayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		return r.sessions.Start(ctx, p.RoomID, c.ActorID, domain.GameType(p.GameType), p.Options)

	case MsgEndGame:
		var p RoomPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		return r.sessions.End(p.RoomID, c.ActorID)

	case MsgGetGameState:
		var p RoomPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		rm, ok := r.rooms.Get(p.RoomID)
		if !ok {
			return domain.ErrRoomNotFound
		}
		rm.Lock()
		_, member := rm.Member(c.ActorID)
		rm.Unlock()
		if !member {
			return domain.ErrNotMember
		}
		snap, err := r.sessions.Snapshot(p.RoomID, c.ActorID)
		if err != nil {
			return err
		}
		r.hub.SendTo(c.ActorID, MsgGameState, snap)
		return nil

	case MsgGameAction:
		var p GameActionPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		return r.sessions.Dispatch(p.RoomID, c.ActorID, p.Action, p.Data)

	case MsgPassTurn:
		var p RoomPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		return r.sessions.PassTurn(p.RoomID, c.ActorID)

	case MsgSetName:
		var p SetNamePayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		if _, err := r.rooms.Rename(p.RoomID, c.ActorID, p.Name); err != nil {
			return err
		}
		c.Name = strings.TrimSpace(p.Name)
		return nil

	case MsgSetTeamMode:
		var p TogglePayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		_, err := r.rooms.SetTeamMode(p.RoomID, c.ActorID, p.Enabled)
		return err

	case MsgSetRelayMode:
		var p TogglePayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		_, err := r.rooms.SetRelayMode(p.RoomID, c.ActorID, p.Enabled)
		return err

	case MsgAddTeam:
		var p RoomPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		_, err := r.rooms.AddTeam(p.RoomID, c.ActorID)
		return err

	case MsgRemoveTeam:
		var p TeamPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		_, err := r.rooms.RemoveTeam(p.RoomID, c.ActorID, p.TeamID)
		return err

	case MsgAssignTeam:
		var p AssignTeamPayload
		if err := decode(f.Payload, &p); err != nil {
			return err
		}
		_, err := r.rooms.AssignTeam(p.RoomID, c.ActorID, p.ActorID, p.TeamID)
		return err

	default:
		return domain.Reject("unknown_event", "unknown message type")
	}
}

func (r *Router) fail(c *Client, event string, err error) {
	log := logger.With("actor", c.ActorID, "event", event, "code", domain.Code(err))
	switch domain.KindOf(err) {
	case domain.KindRejected, domain.KindNotFound:
		log.Debug("request rejected", "error", err)
	case domain.KindCollaborator:
		log.Warn("collaborator failure", "error", err)
	default:
		log.Error("request failed", "error", err)
	}
	r.hub.SendTo(c.ActorID, MsgError, ErrorPayload{Code: domain.Code(err), Message: domain.PublicMessage(err)})
}

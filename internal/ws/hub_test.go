package ws

import (
	"testing"

	"party_server/internal/domain"
	"party_server/internal/logger"
)

func TestDeliverReachesOnlyRecipients(t *testing.T) {
	logger.Discard()
	h := NewHub()
	a := NewClient("a", "a", nil, nil, nil)
	b := NewClient("b", "b", nil, nil, nil)
	h.Register(a)
	h.Register(b)

	h.Deliver(domain.Envelope{Audience: domain.ActorAudience("r", "a"), Event: "secret", Payload: 1}, []string{"a", "ghost"})

	if got := len(drain(a)); got != 1 {
		t.Fatalf("a got %d frames", got)
	}
	if got := len(drain(b)); got != 0 {
		t.Fatalf("b got %d frames", got)
	}
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	logger.Discard()
	h := NewHub()
	c := NewClient("a", "a", nil, nil, nil)
	h.Register(c)

	for i := 0; i < sendBuffer+10; i++ {
		h.SendTo("a", MsgPong, nil)
	}
	if got := len(drain(c)); got != sendBuffer {
		t.Fatalf("buffered %d frames, want %d", got, sendBuffer)
	}
}

func TestUnregisterClosesSendOnce(t *testing.T) {
	logger.Discard()
	h := NewHub()
	c := NewClient("a", "a", nil, nil, nil)
	h.Register(c)
	h.Unregister(c)
	h.Unregister(c)
	h.CloseAll()

	if _, ok := <-c.Send; ok {
		t.Fatalf("send channel should be closed")
	}
	if h.Count() != 0 {
		t.Fatalf("count = %d", h.Count())
	}
	// delivering to a departed actor is a no-op
	h.SendTo("a", MsgPong, nil)
}

func TestReplacedClientIsNotUnregisteredByStaleOne(t *testing.T) {
	logger.Discard()
	h := NewHub()
	old := NewClient("a", "a", nil, nil, nil)
	cur := NewClient("a", "a", nil, nil, nil)
	h.Register(old)
	h.Register(cur)
	h.Unregister(old)

	if h.Count() != 1 {
		t.Fatalf("current client should stay registered")
	}
}

func TestDisplayName(t *testing.T) {
	id := &domain.Identity{UserID: 7, DisplayName: "Tg User"}
	cases := []struct {
		requested string
		identity  *domain.Identity
		want      string
	}{
		{"  Bob ", id, "Bob"},
		{"", id, "Tg User"},
		{"", nil, "Player-abcd"},
	}
	for _, tc := range cases {
		if got := displayName(tc.requested, tc.identity, "abcdef01"); got != tc.want {
			t.Fatalf("displayName(%q) = %q, want %q", tc.requested, got, tc.want)
		}
	}
}

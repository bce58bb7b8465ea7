package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type peer struct {
	name string
	conn *websocket.Conn
	in   chan frame
}

func dial(port, name string) *peer {
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	u := fmt.Sprintf("ws://127.0.0.1:%s/ws?name=%s", port, url.QueryEscape(name))
	if tok := os.Getenv("SMOKE_TOKEN"); tok != "" {
		u += "&token=" + url.QueryEscape(tok)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", name, err)
	}
	p := &peer{name: name, conn: conn, in: make(chan frame, 64)}

	// single reader goroutine per connection
	go func() {
		defer close(p.in)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			if json.Unmarshal(msg, &f) == nil {
				p.in <- f
			}
		}
	}()
	return p
}

func (p *peer) send(typ string, payload any) {
	raw, _ := json.Marshal(payload)
	b, _ := json.Marshal(frame{Type: typ, Payload: raw})
	if err := p.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Fatalf("write %s: %v", p.name, err)
	}
}

func (p *peer) await(typ string) frame {
	deadline := time.After(3 * time.Second)
	for {
		select {
		case f, ok := <-p.in:
			if !ok {
				log.Fatalf("%s: connection closed while waiting for %s", p.name, typ)
			}
			if f.Type == "error" {
				log.Printf("%s got error: %s", p.name, f.Payload)
			}
			if f.Type == typ {
				return f
			}
		case <-deadline:
			log.Fatalf("%s: timed out waiting for %s", p.name, typ)
		}
	}
}

func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	a := dial(port, "smokeA")
	defer a.conn.Close()
	b := dial(port, "smokeB")
	defer b.conn.Close()

	a.await("welcome")
	b.await("welcome")

	a.send("createRoom", map[string]any{"name": "smoke", "capacity": 2})
	var view struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(a.await("roomUpdated").Payload, &view); err != nil {
		log.Fatalf("room view: %v", err)
	}
	log.Printf("room %s created", view.ID)

	b.send("joinRoom", map[string]any{"roomId": view.ID})
	b.await("roomUpdated")

	a.send("startGame", map[string]any{"roomId": view.ID, "gameType": "tictactoe"})
	a.await("gameStarted")
	b.await("gameStarted")

	// X takes the top row
	moves := []struct {
		p   *peer
		pos int
	}{{a, 0}, {b, 3}, {a, 1}, {b, 4}, {a, 2}}
	for _, m := range moves {
		m.p.send("gameAction", map[string]any{"roomId": view.ID, "action": "place", "data": map[string]int{"position": m.pos}})
		m.p.await("tictactoeUpdate")
	}

	log.Printf("A got: %s", a.await("gameEnded").Payload)
	log.Printf("B got: %s", b.await("gameEnded").Payload)
	log.Println("smoke test finished")
}

// Command issue_token prints a bearer token for local testing of identified play.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"party_server/internal/config"
	"party_server/internal/domain"
	"party_server/internal/service"
)

func main() {
	userID := flag.Int64("user", 1234567890, "user id claim")
	name := flag.String("name", "Tester", "display name claim")
	avatar := flag.String("avatar", "", "avatar reference claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	ids := service.NewIdentityResolver(cfg.JWTSecret)

	token, err := ids.Issue(domain.Identity{UserID: *userID, DisplayName: *name, AvatarRef: *avatar}, *ttl)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	fmt.Println(token)
}

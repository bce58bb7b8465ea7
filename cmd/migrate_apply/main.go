package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"party_server/internal/config"
	"party_server/internal/db"
	"party_server/internal/migrations"
	"party_server/internal/repository"
)

func main() {
	apply := flag.Bool("apply", false, "apply migration")
	seed := flag.Bool("seed", false, "upsert the builtin content documents")
	flag.Parse()

	if !*apply && !*seed {
		list, err := migrations.All()
		if err != nil {
			log.Fatalf("read migrations: %v", err)
		}
		for _, m := range list {
			fmt.Println(m.Name)
		}
		return
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if *apply {
		applied, err := db.Migrate(ctx, pool)
		for _, name := range applied {
			fmt.Printf("applied %s\n", name)
		}
		if err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	if *seed {
		builtin, err := repository.NewBuiltinContent()
		if err != nil {
			log.Fatalf("load builtin content: %v", err)
		}
		repo := repository.NewContentRepository(pool)
		for _, d := range builtin.Documents() {
			if err := repo.Upsert(ctx, d); err != nil {
				log.Fatalf("seed %s: %v", d.ID, err)
			}
			fmt.Printf("seeded %s (%s)\n", d.ID, d.Kind)
		}
	}
}

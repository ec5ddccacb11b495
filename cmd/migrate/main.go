package main

import (
	"context"
	"flag"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"omnicrm/migrations"
	"omnicrm/pkg/config"
)

// Runner de migrações embutidas. Uso: go run ./cmd/migrate -command up
func main() {
	command := flag.String("command", "up", "comando do goose: up, down, status, version")
	flag.Parse()

	cfg := config.New()

	db, err := goose.OpenDBWithDriver("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("erro ao abrir conexão: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("erro ao definir dialeto: %v", err)
	}

	if err := goose.RunContext(context.Background(), *command, db, "."); err != nil {
		log.Fatalf("erro ao executar migração (%s): %v", *command, err)
	}
	log.Printf("migração %s concluída", *command)
}

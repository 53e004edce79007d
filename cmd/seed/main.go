package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/arjunpat/user-portal/config"
	"github.com/arjunpat/user-portal/internal/domain/entity"
	"github.com/arjunpat/user-portal/pkg/helpers"
)

// Seeds one admin account so the portal is usable on a fresh database.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "admin@userportal.local"
	password := "Admin123!"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (name, email, password_hash, role, dob, gender, website)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, updated_at = now()
		RETURNING id
	`, "Portal Admin", email, hash, entity.RoleAdmin, "1990-01-01", entity.GenderOther, "").Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", id, email, password)
}

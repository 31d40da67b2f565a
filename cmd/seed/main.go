// seed inserts demo users for local testing. Run after cmd/migrate.
// Idempotent: users whose mobile number is already registered are skipped.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Krishna101010101010/Bio-pay/internal/config"
	"github.com/Krishna101010101010/Bio-pay/internal/db"
	flowdomain "github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/user/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/user/repository"
)

var demoUsers = []domain.User{
	{ID: "demo-user-001", Name: "Demo Customer", Mobile: "9876543210", UserType: flowdomain.UserTypeCustomer},
	{ID: "demo-user-002", Name: "Demo Merchant", Mobile: "9123456780", UserType: flowdomain.UserTypeMerchant},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := repository.NewPostgresRepository(conn)
	now := time.Now().UTC()
	created := 0
	for _, u := range demoUsers {
		u.FingerprintEnrolled = true
		u.Status = domain.UserStatusActive
		u.CreatedAt, u.UpdatedAt = now, now
		if err := users.Create(ctx, &u); err != nil {
			if errors.Is(err, domain.ErrUserExists) {
				log.Printf("seed: %s already registered, skipping", flowdomain.MaskMobile(u.Mobile))
				continue
			}
			log.Fatalf("create %s: %v", u.Name, err)
		}
		created++
	}

	log.Printf("Seed completed: %d user(s) created.", created)
	for _, u := range demoUsers {
		fmt.Printf("%s (%s): %s\n", u.Name, u.UserType, u.Mobile)
	}
}

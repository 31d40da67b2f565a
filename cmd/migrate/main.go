// migrate applies the embedded SQL migrations (users, audit logs, OTP challenges) to DATABASE_URL.
// Usage: go run ./cmd/migrate -direction up|down
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Krishna101010101010/Bio-pay/internal/config"
	"github.com/Krishna101010101010/Bio-pay/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()
	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "unknown direction %q (want up or down)\n", *direction)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("migrate: no change")
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrate: %s complete\n", *direction)
}

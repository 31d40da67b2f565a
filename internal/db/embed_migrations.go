package db

import "embed"

// MigrationFS embeds the SQL migrations (users, audit_logs, otp_challenges, verified_mobiles).
// Applied by cmd/migrate and by cmd/devauth on startup when DATABASE_URL is set.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

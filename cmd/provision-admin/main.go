// Command provision-admin creates or promotes an admin account.
//
//	provision-admin -email boss@example.com -name "Boss" -password '...'
//
// The password may come from ADMIN_PASSWORD instead of the flag so it stays
// out of shell history. Store settings are read the same way the server
// reads them (.env plus environment).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/config"
	"github.com/sakif/event-board/internal/service"
	"github.com/sakif/event-board/internal/store"
)

func main() {
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "", "display name")
	password := flag.String("password", "", "admin password (default $ADMIN_PASSWORD)")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	if err := run(cfg, logger, *email, *name, *password); err != nil {
		logger.Error("provisioning failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, email, name, password string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Logins never go through a verifier here.
	svc := service.NewAuthService(db, nil, auth.NewPasswordService(), logger)
	user, err := svc.ProvisionAdmin(ctx, email, name, password)
	if err != nil {
		return err
	}

	fmt.Printf("admin %s ready (sub %s)\n", user.Email, user.Sub)
	return nil
}

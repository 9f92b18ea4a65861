// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command devtoken mints a staff access token for local development.
//
//	JWT_PRIVATE_KEY_PATH=... JWT_PUBLIC_KEY_PATH=... \
//	  go run ./cmd/devtoken -account <uuid> -role superadmin
//
// The account must exist in staff.account with the same role, otherwise the
// API rejects every staff request made with the token.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/pkg/uuid"
)

type keyConfig struct {
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil)).With(slog.String("app", "devtoken"))

	accountID := flag.String("account", "", "staff account id (uuid)")
	name := flag.String("name", "dev", "display name carried in the token")
	role := flag.String("role", string(sec.RoleAdmin), "admin or superadmin")
	ttl := flag.Duration("ttl", constants.DevTokenTTL, "token lifetime")
	flag.Parse()

	if !uuid.Valid(*accountID) {
		log.Error("invalid_account_id", slog.String("account", *accountID))
		os.Exit(2)
	}
	if *role != string(sec.RoleAdmin) && *role != string(sec.RoleSuperAdmin) {
		log.Error("invalid_role", slog.String("role", *role))
		os.Exit(2)
	}

	var keys keyConfig
	if err := env.Parse(&keys); err != nil {
		log.Error("config_invalid", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tokens, err := sec.NewTokenService(keys.JWTPrivKeyPath, keys.JWTPubKeyPath, constants.AuthIssuer)
	if err != nil {
		log.Error("token_service_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	token, err := tokens.GenerateAccessToken(*accountID, *name, sec.Role(*role), *ttl)
	if err != nil {
		log.Error("token_sign_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(token)
}

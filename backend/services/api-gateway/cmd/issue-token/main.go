// Command issue-token prints a signed bearer token for local testing of the gateway.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"greencharge/backend/services/api-gateway/internal/auth"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id (uuid); a random one when empty")
	role := flag.String("role", auth.RoleDriver, "role (driver|owner)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("API_GATEWAY_JWT_SECRET"), "HS256 secret, defaults to API_GATEWAY_JWT_SECRET")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "issue-token: secret is required")
		os.Exit(2)
	}

	id := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue-token: invalid user id: %v\n", err)
			os.Exit(2)
		}
		id = parsed
	}

	token, err := auth.NewTokenService(*secret, *ttl).GenerateToken(id, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("user_id: %s\nrole:    %s\n\nAuthorization: Bearer %s\n", id, *role, token)
}

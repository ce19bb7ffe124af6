// Command devtoken prints a bearer token for a local server running with
// AUTH_MODE=hmac.
package main

import (
	"chatopia-backend/internal/auth"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	userID := flag.String("user", "dev-user", "user id to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if os.Getenv("ENVIRONMENT") == "prod" {
		log.Fatal("refusing to mint development tokens with ENVIRONMENT=prod")
	}

	token, err := auth.NewAccessToken(*userID, secret, *ttl)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}

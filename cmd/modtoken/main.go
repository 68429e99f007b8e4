package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"photoreel/internal/middleware"
)

// Mints a moderator bearer token for the moderation endpoints.
func main() {
	var (
		subjectFlag string
		ttlFlag     time.Duration
	)
	flag.StringVar(&subjectFlag, "subject", "", "Moderator identity to embed in the token")
	flag.DurationVar(&ttlFlag, "ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	subject := strings.TrimSpace(subjectFlag)
	if subject == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		os.Exit(1)
	}

	secret := strings.TrimSpace(os.Getenv("MODERATOR_JWT_SECRET"))
	if secret == "" {
		fmt.Fprintln(os.Stderr, "MODERATOR_JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := middleware.GenerateModeratorToken(subject, []byte(secret), ttlFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

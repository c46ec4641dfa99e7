package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Friiyous/reseau-social/internal/token"
)

func main() {
	_ = godotenv.Load()

	userID := flag.Int64("user", 0, "User ID to put in the token subject")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (default $JWT_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *userID <= 0 || *secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: gentoken -user <id> [-secret <secret>] [-ttl 24h]")
		fmt.Fprintln(os.Stderr, "  The secret defaults to $JWT_SECRET")
		os.Exit(1)
	}

	signed, err := token.Issue(*secret, *userID, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(signed)
}

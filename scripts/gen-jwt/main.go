package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"trademinutes-gateway/internal/session"

	"github.com/golang-jwt/jwt/v5"
)

// Prints a bearer token the gateway accepts, for local testing.
func main() {
	email := flag.String("email", "test-user@example.com", "email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-me"
	}

	now := time.Now()
	claims := session.Claims{
		Email: *email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}

	fmt.Println(signed)
}

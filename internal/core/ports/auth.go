package ports

import "time"

//go:generate mockgen -source=auth.go -destination=mocks/auth.go -package=mocks

// TokenClaims are the validated claims of an admin token.
type TokenClaims struct {
	Subject string
}

// TokenService issues and validates the bearer tokens guarding the
// admin API.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

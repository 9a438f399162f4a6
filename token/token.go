package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const minValidity = time.Hour * 12

const (
	size = 32
	cost = bcrypt.DefaultCost + 4
)

// Token proves to the dashboard REST API that a request comes from a client
// that is allowed to mutate the dashboard state.
type Token struct {
	ID             any    `json:"-"               bson:"_id,omitempty"   db:"id"`
	Token          string `json:"token"           bson:"token"           db:"token"`
	Valid          bool   `json:"valid"           bson:"valid"           db:"valid"`
	ExpirationDate int64  `json:"expiration_date" bson:"expiration_date" db:"expiration_date"`
}

// New creates a new random token valid until the expiration microsecond
// timestamp. Expiration has to be at least twelve hours ahead.
func New(expiration int64) (Token, error) {
	t := time.UnixMicro(expiration)
	now := time.Now()

	if t.Before(now.Add(minValidity)) {
		return Token{}, fmt.Errorf("expiration time is in the past or is too short")
	}

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return Token{}, fmt.Errorf("failed to generate token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword(b, cost)
	if err != nil {
		return Token{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return Token{
		Token:          base64.StdEncoding.EncodeToString(hash),
		Valid:          true,
		ExpirationDate: expiration,
	}, nil
}

// Expired checks the token validity at the given moment.
func (t Token) Expired(now time.Time) bool {
	return !t.Valid || time.UnixMicro(t.ExpirationDate).Before(now)
}

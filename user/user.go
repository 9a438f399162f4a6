package user

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports an absent user record. Store implementations return
// it so the caller can create the record lazily on first connect.
var ErrNotFound = errors.New("user not found")

// User pairs a wallet address with its display name in the remote store.
// The record is created lazily on the first connect and is never deleted.
type User struct {
	Address     string    `json:"user_id"            bson:"user_id"            db:"user_id"`
	DisplayName string    `json:"display_name"       bson:"display_name"       db:"display_name"`
	CreatedAt   time.Time `json:"creation_timestamp" bson:"creation_timestamp" db:"creation_timestamp"`
}

// DefaultDisplayName derives a readable placeholder name from the address.
func DefaultDisplayName(address string) string {
	if len(address) <= 6 {
		return fmt.Sprintf("User %s", address)
	}
	return fmt.Sprintf("User %s...", address[:6])
}

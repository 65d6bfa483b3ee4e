// Package models defines the persisted entities shared by repositories and
// services.
package models

import "time"

// User is an identity record. The handle is unique, starts with '@', and is
// immutable once created. No secret material is ever stored with a user.
type User struct {
	ID        string
	Handle    string
	CreatedAt time.Time
}

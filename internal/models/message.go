package models

import "time"

// Status is the persisted lifecycle state of a message.
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// Message is the encrypted envelope exchanged between two users.
//
// Ciphertext and AuthTag are produced together by AES-GCM under a key derived
// from the sender's secret key and Salt; they are only ever verified together.
// Salt and Nonce are generated fresh for every message and never reused.
// The secret key is never part of the envelope.
type Message struct {
	ID         string
	Sender     string
	Recipient  string
	Ciphertext []byte
	Salt       []byte
	Nonce      []byte
	AuthTag    []byte
	Status     Status
	SentAt     time.Time
}

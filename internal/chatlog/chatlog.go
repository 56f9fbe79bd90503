// Package chatlog persists users and their conversation history.
//
// Every operation is keyed by a normalized phone number: all non-digit
// characters are stripped before the database is touched, so
// "+234 801-234-5678" and "2348012345678" address the same conversation.
//
// The chats table is append-only. AI messages carry the citations that
// grounded them; user messages never do.
package chatlog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidPhone indicates the phone number is empty after normalization.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrUserNotFound indicates no user is registered for the phone number.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidSender indicates a sender outside {user, ai}.
	ErrInvalidSender = errors.New("invalid sender")

	// ErrUnexpectedCitations indicates citations attached to a user message.
	ErrUnexpectedCitations = errors.New("citations are only valid on ai messages")
)

// Message senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Welcome messages returned by Signup.
const (
	welcomeNew       = "Signup successful! You can start chatting."
	welcomeReturning = "Welcome back! You can start chatting."
)

// User is a registered participant, uniquely identified by phone.
type User struct {
	ID        uuid.UUID `json:"user_id"`
	Phone     string    `json:"phone"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Citation records one retrieved snippet that grounded an AI message.
type Citation struct {
	Source         string `json:"source"`
	Page           int    `json:"page"`
	ContentPreview string `json:"content_preview"`
}

// Message is one entry in a conversation, ordered by CreatedAt.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	Phone     string     `json:"phone"`
	Text      string     `json:"message"`
	Sender    string     `json:"sender"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"timestamp"`
}

// SignupResult reports the outcome of a signup attempt.
type SignupResult struct {
	User    User
	Created bool // false when the phone was already registered
	Message string
}

// NormalizePhone strips every non-digit character from raw.
// Returns ErrInvalidPhone when nothing remains.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if phone == "" {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

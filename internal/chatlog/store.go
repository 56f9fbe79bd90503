package chatlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nelfi/navigator/internal/config"
)

// Store manages user registration and conversation persistence.
//
// Store is safe for concurrent use by multiple goroutines. Messages for
// one phone number are ordered by insertion time with an id tiebreak;
// different phone numbers never contend.
type Store struct {
	querier Querier
	logger  *slog.Logger
}

// New creates a Store.
//
// Example (production):
//
//	store := chatlog.New(chatlog.NewQuerier(pool), logger)
//
// Example (testing with mock):
//
//	store := chatlog.New(mockQuerier, log.NewNop())
func New(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, logger: logger}
}

// Signup registers a phone number, or welcomes it back if already known.
//
// Signup is idempotent: repeating it for a registered phone returns the
// existing user unchanged. The stored full name is NOT updated on
// re-signup; the original registration wins.
func (s *Store) Signup(ctx context.Context, rawPhone, fullName string) (*SignupResult, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	if existing, err := s.querier.GetUserByPhone(ctx, phone); err == nil {
		s.logger.Debug("signup for existing user", "phone", phone)
		return &SignupResult{User: existing, Created: false, Message: welcomeReturning}, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}

	user, err := s.querier.CreateUser(ctx, phone, fullName)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	s.logger.Info("user registered", "phone", phone, "user_id", user.ID)
	return &SignupResult{User: user, Created: true, Message: welcomeNew}, nil
}

// Append records one message for the phone number's conversation.
// Citations are only accepted on AI messages.
func (s *Store) Append(ctx context.Context, rawPhone, text, sender string, citations []Citation) (uuid.UUID, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return uuid.Nil, err
	}

	if sender != SenderUser && sender != SenderAI {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidSender, sender)
	}
	if sender == SenderUser && len(citations) > 0 {
		return uuid.Nil, ErrUnexpectedCitations
	}

	var rawCites []byte
	if len(citations) > 0 {
		rawCites, err = json.Marshal(citations)
		if err != nil {
			return uuid.Nil, fmt.Errorf("encoding citations: %w", err)
		}
	}

	id, err := s.querier.InsertChat(ctx, InsertChatParams{
		Phone:     phone,
		Text:      text,
		Sender:    sender,
		Citations: rawCites,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("appending message: %w", err)
	}

	s.logger.Debug("message appended", "phone", phone, "sender", sender, "citations", len(citations))
	return id, nil
}

// History returns the conversation for the phone number, oldest first.
// An unknown phone yields an empty history, not an error. limit <= 0
// falls back to the default window.
func (s *Store) History(ctx context.Context, rawPhone string, limit int32) ([]Message, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	limit = config.NormalizeMaxHistoryMessages(limit)

	msgs, err := s.querier.ListChatsByPhone(ctx, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

// Clear deletes the conversation for the phone number and reports how
// many messages were removed.
func (s *Store) Clear(ctx context.Context, rawPhone string) (int64, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return 0, err
	}

	deleted, err := s.querier.DeleteChatsByPhone(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}

	s.logger.Info("history cleared", "phone", phone, "deleted", deleted)
	return deleted, nil
}

// Exists reports whether the phone number is registered.
func (s *Store) Exists(ctx context.Context, rawPhone string) (bool, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return false, err
	}

	if _, err := s.querier.GetUserByPhone(ctx, phone); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("looking up user: %w", err)
	}
	return true, nil
}

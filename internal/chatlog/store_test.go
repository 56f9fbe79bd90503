package chatlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nelfi/navigator/internal/log"
)

// mockQuerier is an in-memory Querier for store tests.
type mockQuerier struct {
	users map[string]User
	chats map[string][]Message

	insertErr error
	listErr   error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{
		users: make(map[string]User),
		chats: make(map[string][]Message),
	}
}

func (m *mockQuerier) GetUserByPhone(_ context.Context, phone string) (User, error) {
	u, ok := m.users[phone]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockQuerier) CreateUser(_ context.Context, phone, fullName string) (User, error) {
	if _, ok := m.users[phone]; ok {
		return m.users[phone], nil
	}
	u := User{ID: uuid.New(), Phone: phone, FullName: fullName, CreatedAt: time.Now()}
	m.users[phone] = u
	return u, nil
}

func (m *mockQuerier) InsertChat(_ context.Context, arg InsertChatParams) (uuid.UUID, error) {
	if m.insertErr != nil {
		return uuid.Nil, m.insertErr
	}
	msg := Message{
		ID:        uuid.New(),
		Phone:     arg.Phone,
		Text:      arg.Text,
		Sender:    arg.Sender,
		CreatedAt: time.Now().Add(time.Duration(len(m.chats[arg.Phone])) * time.Millisecond),
	}
	if len(arg.Citations) > 0 {
		if err := json.Unmarshal(arg.Citations, &msg.Citations); err != nil {
			return uuid.Nil, fmt.Errorf("bad citations payload: %w", err)
		}
	}
	m.chats[arg.Phone] = append(m.chats[arg.Phone], msg)
	return msg.ID, nil
}

func (m *mockQuerier) ListChatsByPhone(_ context.Context, phone string, limit int32) ([]Message, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	msgs := m.chats[phone]
	if int32(len(msgs)) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (m *mockQuerier) DeleteChatsByPhone(_ context.Context, phone string) (int64, error) {
	n := int64(len(m.chats[phone]))
	delete(m.chats, phone)
	return n, nil
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "digits only", raw: "2348012345678", want: "2348012345678"},
		{name: "international format", raw: "+234 801-234-5678", want: "2348012345678"},
		{name: "parentheses and spaces", raw: "(0801) 234 5678", want: "08012345678"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no digits", raw: "abc-def", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Errorf("NormalizePhone(%q) error = %v, want ErrInvalidPhone", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSignup_NewUser(t *testing.T) {
	store := New(newMockQuerier(), log.NewNop())

	res, err := store.Signup(context.Background(), "+234 801 234 5678", "Amina Yusuf")
	if err != nil {
		t.Fatalf("Signup() failed: %v", err)
	}

	if !res.Created {
		t.Error("expected Created=true for first signup")
	}
	if res.User.Phone != "2348012345678" {
		t.Errorf("stored phone = %q, want normalized form", res.User.Phone)
	}
	if res.Message != welcomeNew {
		t.Errorf("message = %q, want %q", res.Message, welcomeNew)
	}
}

func TestSignup_Idempotent(t *testing.T) {
	store := New(newMockQuerier(), log.NewNop())
	ctx := context.Background()

	first, err := store.Signup(ctx, "08012345678", "Amina Yusuf")
	if err != nil {
		t.Fatalf("first Signup() failed: %v", err)
	}

	// Same phone, different formatting and a different name
	second, err := store.Signup(ctx, "0801-234-5678", "A. Yusuf")
	if err != nil {
		t.Fatalf("second Signup() failed: %v", err)
	}

	if second.Created {
		t.Error("expected Created=false for repeat signup")
	}
	if second.User.ID != first.User.ID {
		t.Errorf("repeat signup returned different user: %s vs %s", second.User.ID, first.User.ID)
	}
	if second.User.FullName != "Amina Yusuf" {
		t.Errorf("full name changed on re-signup: %q", second.User.FullName)
	}
	if second.Message != welcomeReturning {
		t.Errorf("message = %q, want %q", second.Message, welcomeReturning)
	}
}

func TestSignup_InvalidPhone(t *testing.T) {
	store := New(newMockQuerier(), log.NewNop())

	_, err := store.Signup(context.Background(), "---", "Nobody")
	if !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("Signup() error = %v, want ErrInvalidPhone", err)
	}
}

func TestAppend_SenderValidation(t *testing.T) {
	store := New(newMockQuerier(), log.NewNop())
	ctx := context.Background()

	if _, err := store.Append(ctx, "080", "hi", "system", nil); !errors.Is(err, ErrInvalidSender) {
		t.Errorf("Append() error = %v, want ErrInvalidSender", err)
	}

	cites := []Citation{{Source: "doc.pdf", Page: 1}}
	if _, err := store.Append(ctx, "080", "hi", SenderUser, cites); !errors.Is(err, ErrUnexpectedCitations) {
		t.Errorf("Append() error = %v, want ErrUnexpectedCitations", err)
	}
}

func TestAppend_CitationsRoundTrip(t *testing.T) {
	q := newMockQuerier()
	store := New(q, log.NewNop())
	ctx := context.Background()

	cites := []Citation{
		{Source: "eligibility_guidelines.pdf", Page: 1, ContentPreview: "NELFUND Eligibility Criteria..."},
		{Source: "application_procedure.pdf", Page: 2, ContentPreview: "How to apply..."},
	}

	if _, err := store.Append(ctx, "0801", "answer text", SenderAI, cites); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	history, err := store.History(ctx, "0801", 10)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if len(history[0].Citations) != 2 {
		t.Fatalf("citations length = %d, want 2", len(history[0].Citations))
	}
	if history[0].Citations[0].Source != "eligibility_guidelines.pdf" {
		t.Errorf("citation source = %q", history[0].Citations[0].Source)
	}
}

func TestHistory_UnknownPhoneIsEmpty(t *testing.T) {
	store := New(newMockQuerier(), log.NewNop())

	history, err := store.History(context.Background(), "99999", 10)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if history == nil {
		t.Error("History() should return empty slice, not nil")
	}
	if len(history) != 0 {
		t.Errorf("history length = %d, want 0", len(history))
	}
}

func TestHistory_Ordering(t *testing.T) {
	store := New(newMockQuerier(), log.NewNop())
	ctx := context.Background()

	for i, text := range []string{"first", "second", "third"} {
		sender := SenderUser
		if i%2 == 1 {
			sender = SenderAI
		}
		if _, err := store.Append(ctx, "0802", text, sender, nil); err != nil {
			t.Fatalf("Append(%q) failed: %v", text, err)
		}
	}

	history, err := store.History(ctx, "0802", 10)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	want := []string{"first", "second", "third"}
	for i, msg := range history {
		if msg.Text != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, msg.Text, want[i])
		}
	}
}

func TestClear(t *testing.T) {
	store := New(newMockQuerier(), log.NewNop())
	ctx := context.Background()

	for range 3 {
		if _, err := store.Append(ctx, "0803", "msg", SenderUser, nil); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	deleted, err := store.Clear(ctx, "0803")
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	// Second clear removes nothing
	deleted, err = store.Clear(ctx, "0803")
	if err != nil {
		t.Fatalf("second Clear() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}

	history, err := store.History(ctx, "0803", 10)
	if err != nil {
		t.Fatalf("History() after Clear() failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history after clear = %d messages, want 0", len(history))
	}
}

func TestAppend_PropagatesQuerierError(t *testing.T) {
	q := newMockQuerier()
	q.insertErr = errors.New("connection reset")
	store := New(q, log.NewNop())

	_, err := store.Append(context.Background(), "0804", "hi", SenderUser, nil)
	if err == nil {
		t.Fatal("expected error from querier, got nil")
	}
}

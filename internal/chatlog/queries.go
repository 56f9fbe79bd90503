package chatlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier defines the database operations Store depends on.
// Interfaces are defined by the consumer: tests supply a mock, production
// uses the pgx-backed implementation from NewQuerier.
type Querier interface {
	GetUserByPhone(ctx context.Context, phone string) (User, error)
	CreateUser(ctx context.Context, phone, fullName string) (User, error)
	InsertChat(ctx context.Context, arg InsertChatParams) (uuid.UUID, error)
	ListChatsByPhone(ctx context.Context, phone string, limit int32) ([]Message, error)
	DeleteChatsByPhone(ctx context.Context, phone string) (int64, error)
}

// InsertChatParams carries one row for the chats table.
// Citations is pre-marshaled JSON; empty means '[]'.
type InsertChatParams struct {
	Phone     string
	Text      string
	Sender    string
	Citations []byte
}

// pgQuerier implements Querier on a pgx connection pool.
type pgQuerier struct {
	pool *pgxpool.Pool
}

// NewQuerier returns the production Querier backed by pool.
func NewQuerier(pool *pgxpool.Pool) Querier {
	return &pgQuerier{pool: pool}
}

const getUserByPhoneSQL = `
SELECT id, phone, full_name, created_at
FROM users
WHERE phone = $1`

func (q *pgQuerier) GetUserByPhone(ctx context.Context, phone string) (User, error) {
	var u User
	err := q.pool.QueryRow(ctx, getUserByPhoneSQL, phone).
		Scan(&u.ID, &u.Phone, &u.FullName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user by phone: %w", err)
	}
	return u, nil
}

const createUserSQL = `
INSERT INTO users (phone, full_name)
VALUES ($1, $2)
RETURNING id, phone, full_name, created_at`

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

func (q *pgQuerier) CreateUser(ctx context.Context, phone, fullName string) (User, error) {
	var u User
	err := q.pool.QueryRow(ctx, createUserSQL, phone, fullName).
		Scan(&u.ID, &u.Phone, &u.FullName, &u.CreatedAt)
	if err != nil {
		// Concurrent signup for the same phone: treat as already registered
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return q.GetUserByPhone(ctx, phone)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

const insertChatSQL = `
INSERT INTO chats (user_phone, message, sender, citations)
VALUES ($1, $2, $3, $4)
RETURNING id`

func (q *pgQuerier) InsertChat(ctx context.Context, arg InsertChatParams) (uuid.UUID, error) {
	citations := arg.Citations
	if len(citations) == 0 {
		citations = []byte("[]")
	}

	var id uuid.UUID
	err := q.pool.QueryRow(ctx, insertChatSQL, arg.Phone, arg.Text, arg.Sender, citations).
		Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert chat: %w", err)
	}
	return id, nil
}

// listChatsSQL replays oldest first. seq breaks created_at ties in
// insertion order; the two sides of one turn often share a timestamp.
const listChatsSQL = `
SELECT id, user_phone, message, sender, citations, created_at
FROM chats
WHERE user_phone = $1
ORDER BY created_at ASC, seq ASC
LIMIT $2`

func (q *pgQuerier) ListChatsByPhone(ctx context.Context, phone string, limit int32) ([]Message, error) {
	rows, err := q.pool.Query(ctx, listChatsSQL, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			m        Message
			rawCites []byte
		)
		if err := rows.Scan(&m.ID, &m.Phone, &m.Text, &m.Sender, &rawCites, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		if len(rawCites) > 0 {
			if err := json.Unmarshal(rawCites, &m.Citations); err != nil {
				return nil, fmt.Errorf("decode citations for chat %s: %w", m.ID, err)
			}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rows: %w", err)
	}
	return msgs, nil
}

const deleteChatsSQL = `DELETE FROM chats WHERE user_phone = $1`

func (q *pgQuerier) DeleteChatsByPhone(ctx context.Context, phone string) (int64, error) {
	tag, err := q.pool.Exec(ctx, deleteChatsSQL, phone)
	if err != nil {
		return 0, fmt.Errorf("delete chats: %w", err)
	}
	return tag.RowsAffected(), nil
}

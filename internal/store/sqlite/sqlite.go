package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/avolkova/chatline-server/internal/store"
)

// toggleRetries bounds the optimistic-update loop. Conflicts only happen when
// another process toggles the same message between our read and write.
const toggleRetries = 5

// SQLiteStore implements store.MessageStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function instead
// of the default schema. Useful for tests.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	room_key   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	text       TEXT NOT NULL,
	reactions  TEXT NOT NULL DEFAULT '{}',
	version    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room_key ON messages (room_key, created_at);
`

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create persists a new message and returns it with generated id and timestamp.
func (s *SQLiteStore) Create(ctx context.Context, roomKey, userID, text string) (*store.Message, error) {
	msg := &store.Message{
		ID:        uuid.NewString(),
		RoomKey:   roomKey,
		UserID:    userID,
		Text:      text,
		Reactions: store.ReactionMap{},
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO messages (id, room_key, user_id, text, reactions, version, created_at)
		VALUES (?, ?, ?, ?, '{}', 0, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, msg.ID, msg.RoomKey, msg.UserID, msg.Text, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// ListByKey returns messages for a key ascending by creation time.
func (s *SQLiteStore) ListByKey(ctx context.Context, roomKey string, limit int) ([]*store.Message, error) {
	// The inner query picks the `limit` most recent rows; the outer one
	// flips them back to ascending order.
	query := `
		SELECT id, room_key, user_id, text, reactions, version, created_at
		FROM messages
		WHERE room_key = ?
		ORDER BY created_at ASC, id ASC
	`
	args := []any{roomKey}
	if limit > 0 {
		query = `
			SELECT id, room_key, user_id, text, reactions, version, created_at
			FROM (
				SELECT id, room_key, user_id, text, reactions, version, created_at
				FROM messages
				WHERE room_key = ?
				ORDER BY created_at DESC, id DESC
				LIMIT ?
			)
			ORDER BY created_at ASC, id ASC
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// GetByID retrieves a single message by id.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*store.Message, error) {
	query := `
		SELECT id, room_key, user_id, text, reactions, version, created_at
		FROM messages
		WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

// ToggleReaction flips userID's reaction under emoji. The update is
// conditional on the version read, so concurrent togglers from other
// processes sharing the database never lose writes; on conflict the store
// re-reads and retries.
func (s *SQLiteStore) ToggleReaction(ctx context.Context, id, emoji, userID string) (*store.Message, error) {
	for attempt := 0; attempt < toggleRetries; attempt++ {
		msg, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		msg.Reactions.Toggle(emoji, userID)

		raw, err := json.Marshal(msg.Reactions)
		if err != nil {
			return nil, fmt.Errorf("marshal reactions: %w", err)
		}

		res, err := s.db.ExecContext(ctx, `
			UPDATE messages
			SET reactions = ?, version = version + 1
			WHERE id = ? AND version = ?
		`, string(raw), id, msg.Version)
		if err != nil {
			return nil, fmt.Errorf("update reactions: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 1 {
			msg.Version++
			return msg, nil
		}
		// Lost the race; reload and try again.
	}

	return nil, fmt.Errorf("toggle reaction %s: too many version conflicts", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var (
		msg store.Message
		raw string
	)
	err := row.Scan(&msg.ID, &msg.RoomKey, &msg.UserID, &msg.Text, &raw, &msg.Version, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}

	msg.Reactions = store.ReactionMap{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &msg.Reactions); err != nil {
			return nil, fmt.Errorf("unmarshal reactions: %w", err)
		}
	}

	return &msg, nil
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type SQLStorage struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

func NewSQLStorage(ctx context.Context, dialect Dialect, dsn string, logger *zap.Logger) (*SQLStorage, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if dialect == DialectSQLite {
		// Every sqlite connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &SQLStorage{db: db, dialect: dialect, logger: logger}
	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *SQLStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations/" + string(s.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's form.
func (s *SQLStorage) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStorage) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	username := sql.NullString{String: conv.Username, Valid: conv.Username != ""}

	query := s.rebind(`
		INSERT INTO conversations (id, user_id, username, message, sent_at_ms)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		conv.ID,
		conv.UserID,
		username,
		conv.Message,
		conv.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("error saving conversation: %w", err)
	}
	return nil
}

func (s *SQLStorage) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id
		FROM conversations
		GROUP BY user_id
		ORDER BY MIN(seq)`)
	if err != nil {
		return nil, fmt.Errorf("error querying user ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStorage) GetUserConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	query := s.rebind(`
		SELECT id, user_id, username, message, sent_at_ms
		FROM conversations
		WHERE user_id = ?
		ORDER BY seq`)

	return s.queryConversations(ctx, query, userID)
}

func (s *SQLStorage) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	return s.queryConversations(ctx, `
		SELECT id, user_id, username, message, sent_at_ms
		FROM conversations
		ORDER BY seq`)
}

func (s *SQLStorage) queryConversations(ctx context.Context, query string, args ...any) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	conversations := []*models.Conversation{}
	for rows.Next() {
		var (
			conv     models.Conversation
			username sql.NullString
			sentAtMs int64
		)
		if err := rows.Scan(&conv.ID, &conv.UserID, &username, &conv.Message, &sentAtMs); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		conv.Username = username.String
		conv.Timestamp = time.UnixMilli(sentAtMs).UTC()
		conversations = append(conversations, &conv)
	}
	return conversations, rows.Err()
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

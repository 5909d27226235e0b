package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap"
)

// Storage persists conversation records. Implementations are safe for
// concurrent use and return records in insertion order.
type Storage interface {
	SaveConversation(ctx context.Context, conv *models.Conversation) error
	ListUserIDs(ctx context.Context) ([]int64, error)
	GetUserConversations(ctx context.Context, userID int64) ([]*models.Conversation, error)
	ListConversations(ctx context.Context) ([]*models.Conversation, error)
	Close() error
}

type Kind string

const (
	KindNone     Kind = ""
	KindMemory   Kind = "memory"
	KindMongo    Kind = "mongo"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

var ErrUnsupportedURI = errors.New("unsupported store uri")

type Config struct {
	URI        string
	Database   string
	Collection string
}

// ParseKind picks the backend for a store URI by its scheme.
func ParseKind(uri string) (Kind, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return KindNone, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		// sqlite://:memory: is not a valid URL host.
		if strings.HasPrefix(uri, "sqlite://") {
			return KindSQLite, nil
		}
		return KindNone, fmt.Errorf("parse store uri: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "memory":
		return KindMemory, nil
	case "mongodb", "mongodb+srv":
		return KindMongo, nil
	case "postgres", "postgresql":
		return KindPostgres, nil
	case "sqlite":
		return KindSQLite, nil
	default:
		return KindNone, fmt.Errorf("%w: scheme %q", ErrUnsupportedURI, u.Scheme)
	}
}

// Open connects to the store named by cfg.URI. An empty URI returns a nil
// Storage and no error.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Storage, error) {
	kind, err := ParseKind(cfg.URI)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindNone:
		return nil, nil
	case KindMemory:
		logger.Info("Using in-memory storage")
		return NewMemoryStorage(), nil
	case KindMongo:
		logger.Info("Using MongoDB storage")
		store, err := NewMongoStorage(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case KindPostgres, KindSQLite:
		dialect, dsn := DialectPostgres, cfg.URI
		if kind == KindSQLite {
			dialect, dsn = DialectSQLite, sqlitePath(cfg.URI)
		}
		logger.Info("Using SQL storage", zap.String("dialect", string(dialect)))
		store, err := NewSQLStorage(ctx, dialect, dsn, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURI, cfg.URI)
}

func sqlitePath(uri string) string {
	path := strings.TrimPrefix(strings.TrimSpace(uri), "sqlite://")
	if path == "" {
		return ":memory:"
	}
	return path
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap"
)

func openStores(t *testing.T) map[string]Storage {
	t.Helper()
	ctx := context.Background()

	sqliteMem, err := Open(ctx, Config{URI: "sqlite://:memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqliteFile, err := Open(ctx, Config{URI: "sqlite://" + filepath.Join(t.TempDir(), "bot.db")}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite file: %v", err)
	}
	memory, err := Open(ctx, Config{URI: "memory://"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}

	stores := map[string]Storage{
		"memory":      memory,
		"sqlite":      sqliteMem,
		"sqlite-file": sqliteFile,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStorageConversations(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	input := []models.Conversation{
		{UserID: 10, Username: "alice", Message: "hello", Timestamp: base},
		{UserID: 20, Message: "@snsupratimbot hi", Timestamp: base.Add(time.Second)},
		{UserID: 10, Username: "alice", Message: "bye", Timestamp: base.Add(2 * time.Second)},
		{UserID: 30, Username: "carol", Message: "thanks", Timestamp: base.Add(3 * time.Second)},
	}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := range input {
				conv := input[i]
				if err := store.SaveConversation(ctx, &conv); err != nil {
					t.Fatalf("save: %v", err)
				}
				if conv.ID == "" {
					t.Fatal("expected id to be assigned")
				}
			}

			ids, err := store.ListUserIDs(ctx)
			if err != nil {
				t.Fatalf("list user ids: %v", err)
			}
			if !reflect.DeepEqual(ids, []int64{10, 20, 30}) {
				t.Errorf("user ids = %v", ids)
			}

			history, err := store.GetUserConversations(ctx, 10)
			if err != nil {
				t.Fatalf("get user conversations: %v", err)
			}
			if len(history) != 2 || history[0].Message != "hello" || history[1].Message != "bye" {
				t.Fatalf("unexpected history: %+v", history)
			}
			if history[0].Username != "alice" || !history[0].Timestamp.Equal(base) {
				t.Errorf("unexpected first record: %+v", history[0])
			}

			none, err := store.GetUserConversations(ctx, 99)
			if err != nil {
				t.Fatalf("get unknown user: %v", err)
			}
			if len(none) != 0 {
				t.Errorf("expected no records, got %d", len(none))
			}

			all, err := store.ListConversations(ctx)
			if err != nil {
				t.Fatalf("list conversations: %v", err)
			}
			if len(all) != len(input) {
				t.Fatalf("got %d records, want %d", len(all), len(input))
			}
			for i, conv := range all {
				if conv.Message != input[i].Message || conv.UserID != input[i].UserID {
					t.Errorf("record %d = %+v, want %+v", i, conv, input[i])
				}
			}
			if all[1].Username != "" {
				t.Errorf("expected empty username, got %q", all[1].Username)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		uri  string
		want Kind
		err  bool
	}{
		{"", KindNone, false},
		{"memory://", KindMemory, false},
		{"mongodb://localhost:27017/chatbot", KindMongo, false},
		{"mongodb+srv://user:pw@cluster0.example.net/", KindMongo, false},
		{"postgres://postgres@localhost:5432/bot?sslmode=disable", KindPostgres, false},
		{"postgresql://localhost/bot", KindPostgres, false},
		{"sqlite://:memory:", KindSQLite, false},
		{"sqlite:///var/lib/bot.db", KindSQLite, false},
		{"redis://localhost:6379", KindNone, true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.uri)
		if (err != nil) != tt.err {
			t.Errorf("ParseKind(%q) error = %v", tt.uri, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestOpenWithoutURI(t *testing.T) {
	store, err := Open(context.Background(), Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store != nil {
		t.Fatalf("expected nil store, got %T", store)
	}

	_, err = Open(context.Background(), Config{URI: "ftp://example.com"}, zap.NewNop())
	if !errors.Is(err, ErrUnsupportedURI) {
		t.Fatalf("expected ErrUnsupportedURI, got %v", err)
	}
}

func TestMongoNames(t *testing.T) {
	tests := []struct {
		cfg            Config
		db, collection string
	}{
		{Config{URI: "mongodb://localhost:27017"}, "chatbot", "conversations"},
		{Config{URI: "mongodb://localhost:27017/", Database: "bots"}, "bots", "conversations"},
		{Config{URI: "mongodb://localhost:27017/prod?retryWrites=true", Database: "bots", Collection: "history"}, "prod", "history"},
	}
	for _, tt := range tests {
		db, collection := mongoNames(tt.cfg)
		if db != tt.db || collection != tt.collection {
			t.Errorf("mongoNames(%+v) = %s/%s, want %s/%s", tt.cfg, db, collection, tt.db, tt.collection)
		}
	}
}

func TestRebind(t *testing.T) {
	s := &SQLStorage{dialect: DialectPostgres}
	got := s.rebind("INSERT INTO t (a, b) VALUES (?, ?)")
	if got != "INSERT INTO t (a, b) VALUES ($1, $2)" {
		t.Errorf("rebind = %q", got)
	}

	s.dialect = DialectSQLite
	if got := s.rebind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

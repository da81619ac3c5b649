package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	scribe "github.com/goliatone/go-scribe"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Credential is a stored bearer token row
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:c"`

	Key       string    `bun:"key,pk" json:"key"`
	Token     string    `bun:"token,notnull" json:"-"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// SQLStore keeps the credential in a bun backed table
type SQLStore struct {
	db  *bun.DB
	key string
	now func() time.Time
}

var _ scribe.TokenStore = (*SQLStore)(nil)

// NewSQLStore uses an existing database handle. Call Migrate before use.
func NewSQLStore(db *bun.DB, key string) *SQLStore {
	if key == "" {
		key = scribe.DefaultTokenKey
	}
	return &SQLStore{db: db, key: key, now: time.Now}
}

// OpenSQLite opens a sqlite database at dsn and prepares the table
func OpenSQLite(ctx context.Context, dsn, key string) (*SQLStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	sqldb.SetMaxOpenConns(1)

	s := NewSQLStore(bun.NewDB(sqldb, sqlitedialect.New()), key)
	if err := s.Migrate(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the credentials table if needed
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Credential)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}

// DB returns the underlying bun handle
func (s *SQLStore) DB() *bun.DB {
	return s.db
}

func (s *SQLStore) Save(ctx context.Context, token string) error {
	record := &Credential{
		Key:       s.key,
		Token:     token,
		UpdatedAt: s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return scribe.WrapStoreError("save", err)
}

func (s *SQLStore) Load(ctx context.Context) (string, bool, error) {
	record := new(Credential)
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", s.key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, scribe.WrapStoreError("load", err)
	}
	return record.Token, true, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*Credential)(nil)).
		Where("key = ?", s.key).
		Exec(ctx)
	return scribe.WrapStoreError("clear", err)
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var (
	ErrUserNotFound      = errors.New("user not found", errors.CategoryNotFound).WithCode(errors.CodeNotFound)
	ErrRecordNotFound    = errors.New("record not found", errors.CategoryNotFound).WithCode(errors.CodeNotFound)
	ErrIdentityConflicts = errors.New("username or email already registered", errors.CategoryConflict).WithCode(errors.CodeConflict)
)

// Repository persists users, transcripts and audio files
type Repository struct {
	db    *bun.DB
	users Users
	now   func() time.Time
}

// OpenRepository opens the sqlite database at dsn and creates the schema
func OpenRepository(ctx context.Context, dsn string) (*Repository, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	sqldb.SetMaxOpenConns(1)

	r := NewRepository(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := r.Migrate(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}
	return r, nil
}

// NewRepository wraps an existing bun handle
func NewRepository(db *bun.DB) *Repository {
	return &Repository{
		db:    db,
		users: NewUsersRepository(db),
		now:   time.Now,
	}
}

// Migrate creates missing tables
func (r *Repository) Migrate(ctx context.Context) error {
	models := []any{
		(*User)(nil),
		(*Transcript)(nil),
		(*AudioFile)(nil),
	}
	for _, model := range models {
		if _, err := r.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Close closes the database
func (r *Repository) Close() error {
	return r.db.Close()
}

// Users returns the account store
func (r *Repository) Users() Users {
	return r.users
}

// CreateUser registers a new account
func (r *Repository) CreateUser(ctx context.Context, user *User) (*User, error) {
	return r.users.Register(ctx, user)
}

// GetUserByEmail looks up an account by email, case insensitive
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := r.users.GetByIdentifier(ctx, strings.TrimSpace(email))
	return user, userErr(err)
}

// GetUserByID looks up an account by primary key
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := r.users.GetByID(ctx, id.String())
	return user, userErr(err)
}

// UpdateUser stores user
func (r *Repository) UpdateUser(ctx context.Context, user *User) (*User, error) {
	return r.users.Save(ctx, user)
}

// TrackLogin records a successful sign in
func (r *Repository) TrackLogin(ctx context.Context, user *User) error {
	return r.users.TrackLogin(ctx, user)
}

// CreateTranscript inserts a transcript
func (r *Repository) CreateTranscript(ctx context.Context, tr *Transcript) (*Transcript, error) {
	tr.CreatedAt = r.now().UTC()
	if _, err := r.db.NewInsert().Model(tr).Returning("*").Exec(ctx); err != nil {
		return nil, err
	}
	tr.AudioFiles = []*AudioFile{}
	return tr, nil
}

// GetTranscript returns a transcript owned by userID
func (r *Repository) GetTranscript(ctx context.Context, userID uuid.UUID, id int64) (*Transcript, error) {
	tr := new(Transcript)
	err := r.db.NewSelect().
		Model(tr).
		Relation("AudioFiles").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, recordErr(err)
	}
	if tr.AudioFiles == nil {
		tr.AudioFiles = []*AudioFile{}
	}
	return tr, nil
}

// ListTranscripts returns a page of transcripts owned by userID, newest first
func (r *Repository) ListTranscripts(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*Transcript, error) {
	records := []*Transcript{}
	err := r.db.NewSelect().
		Model(&records).
		Relation("AudioFiles").
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.id DESC").
		Offset(skip).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, tr := range records {
		if tr.AudioFiles == nil {
			tr.AudioFiles = []*AudioFile{}
		}
	}
	return records, nil
}

// UpdateTranscript stores the given columns of tr
func (r *Repository) UpdateTranscript(ctx context.Context, tr *Transcript, columns ...string) error {
	_, err := r.db.NewUpdate().Model(tr).Column(columns...).WherePK().Exec(ctx)
	return err
}

// DeleteTranscript removes a transcript and its audio files
func (r *Repository) DeleteTranscript(ctx context.Context, userID uuid.UUID, id int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*Transcript)(nil)).
			Where("id = ?", id).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrRecordNotFound
		}
		_, err = tx.NewDelete().
			Model((*AudioFile)(nil)).
			Where("transcript_id = ?", id).
			Exec(ctx)
		return err
	})
}

// CreateAudio inserts an audio record
func (r *Repository) CreateAudio(ctx context.Context, af *AudioFile) (*AudioFile, error) {
	af.CreatedAt = r.now().UTC()
	if _, err := r.db.NewInsert().Model(af).Returning("*").Exec(ctx); err != nil {
		return nil, err
	}
	return af, nil
}

// UpdateAudio stores the given columns of af
func (r *Repository) UpdateAudio(ctx context.Context, af *AudioFile, columns ...string) error {
	_, err := r.db.NewUpdate().Model(af).Column(columns...).WherePK().Exec(ctx)
	return err
}

// GetAudio returns an audio record owned by userID
func (r *Repository) GetAudio(ctx context.Context, userID uuid.UUID, id int64) (*AudioFile, error) {
	af := new(AudioFile)
	err := r.db.NewSelect().
		Model(af).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, recordErr(err)
	}
	return af, nil
}

// DeleteAudio removes an audio record owned by userID
func (r *Repository) DeleteAudio(ctx context.Context, userID uuid.UUID, id int64) error {
	res, err := r.db.NewDelete().
		Model((*AudioFile)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func userErr(err error) error {
	if err != nil && isNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

func recordErr(err error) error {
	if err != nil && isNotFound(err) {
		return ErrRecordNotFound
	}
	return err
}

package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account store
type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
	TrackLogin(ctx context.Context, user *User) error
	TrackLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository returns the account store backed by db
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx creates the account unless the email or username is taken
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("lower(email) = lower(?)", user.Email).
		WhereOr("lower(username) = lower(?)", user.Username).
		Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrIdentityConflicts
	}

	prepareUserDefaults(user, a.now().UTC())
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

// GetByIdentifierTx resolves identifier as id, email or username, case
// insensitive for the last two
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	for _, opt := range resolveUserIdentifier(identifier) {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		where := fmt.Sprintf("?TableAlias.%s = ?", opt.column)
		if opt.column != "id" {
			where = fmt.Sprintf("lower(?TableAlias.%s) = lower(?)", opt.column)
		}

		err := q.Where(where, opt.value).Limit(1).Scan(ctx)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

// Save stores every column of user and bumps updated_at
func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	user.UpdatedAt = a.now().UTC()
	return a.Repository.Update(ctx, user, repository.UpdateByID(user.ID.String()))
}

func (a *users) TrackLogin(ctx context.Context, user *User) error {
	return a.TrackLoginTx(ctx, a.db, user)
}

func (a *users) TrackLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := a.now().UTC()
	_, err := tx.NewRaw(`
		UPDATE "users"
		SET "loggedin_at" = ?, "updated_at" = ?
		WHERE "id" = ?;
	`, loggedInAt, loggedInAt, user.ID).Exec(ctx)
	if err != nil {
		return err
	}

	user.LoggedInAt = &loggedInAt
	user.UpdatedAt = loggedInAt
	return nil
}

func prepareUserDefaults(record *User, now time.Time) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = strings.ToLower(strings.TrimSpace(record.Email))
	record.CreatedAt = now
	record.UpdatedAt = now
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if _, err := uuid.Parse(trimmed); err == nil {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if _, err := mail.ParseAddress(trimmed); err == nil {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	return append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

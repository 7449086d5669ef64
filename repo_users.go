package wodstrat

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Users interface {
	Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	return &users{
		Repository: NewRepository(db, ModelHandlers[*User]{
			NewRecord: func() *User { return &User{} },
			GetID: func(u *User) int64 {
				if u == nil {
					return 0
				}
				return u.ID
			},
			SetID: func(u *User, id int64) {
				if u != nil {
					u.ID = id
				}
			},
		}),
		db: db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapRepoError(err, map[string]any{"email": email})
	}
	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx creates the user, mapping duplicate emails to ErrEmailTaken
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	user.Email = normalizeEmail(user.Email)

	if _, err := a.GetByEmailTx(ctx, tx, user.Email); err == nil {
		return nil, cloneErr(ErrEmailTaken).WithMetadata(map[string]any{"email": user.Email})
	} else if !IsRecordNotFound(err) {
		return nil, err
	}

	created, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, cloneErr(ErrEmailTaken).WithMetadata(map[string]any{"email": user.Email})
		}
		return nil, err
	}

	return created, nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now().UTC()
	record := &User{ID: user.ID, LoggedInAt: &loggedInAt}
	_, err := tx.NewUpdate().
		Model(record).
		Column("loggedin_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapRepoError(err, map[string]any{"id": user.ID})
	}

	user.LoggedInAt = &loggedInAt
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

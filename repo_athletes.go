package wodstrat

import (
	"context"

	"github.com/uptrace/bun"
)

type Athletes interface {
	Repository[*Athlete]

	GetByUserID(ctx context.Context, userID int64) (*Athlete, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID int64) (*Athlete, error)
}

type athletes struct {
	Repository[*Athlete]
	db *bun.DB
}

var _ Athletes = (*athletes)(nil)

func NewAthletesRepository(db *bun.DB) Athletes {
	return &athletes{
		Repository: NewRepository(db, ModelHandlers[*Athlete]{
			NewRecord: func() *Athlete { return &Athlete{} },
			GetID: func(a *Athlete) int64 {
				if a == nil {
					return 0
				}
				return a.ID
			},
			SetID: func(a *Athlete, id int64) {
				if a != nil {
					a.ID = id
				}
			},
		}),
		db: db,
	}
}

func (a *athletes) GetByUserID(ctx context.Context, userID int64) (*Athlete, error) {
	return a.GetByUserIDTx(ctx, a.db, userID)
}

func (a *athletes) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID int64) (*Athlete, error) {
	record := &Athlete{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapRepoError(err, map[string]any{"user_id": userID})
	}
	return record, nil
}

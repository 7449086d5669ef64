package wodstrat

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type CreateAthleteMessage struct {
	UserID  int64
	Request CreateAthleteRequest
}

func (e CreateAthleteMessage) Type() string { return "athlete.create" }

// CreateAthleteHandler creates the single athlete profile a user may own
type CreateAthleteHandler struct {
	repo         RepositoryManager
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

func NewCreateAthleteHandler(repo RepositoryManager) *CreateAthleteHandler {
	return &CreateAthleteHandler{
		repo:         repo,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (h *CreateAthleteHandler) WithLogger(logger Logger) *CreateAthleteHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateAthleteHandler) WithActivitySink(sink ActivitySink) *CreateAthleteHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *CreateAthleteHandler) Execute(ctx context.Context, event CreateAthleteMessage) (*Athlete, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during athlete creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateAthleteHandler) execute(ctx context.Context, event CreateAthleteMessage) (*Athlete, error) {
	if err := event.Request.Validate(); err != nil {
		return nil, validationErr(err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var athlete *Athlete
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByIDTx(ctx, tx, event.UserID); err != nil {
			return err
		}

		existing, err := h.repo.Athletes().GetByUserIDTx(ctx, tx, event.UserID)
		if err == nil && existing != nil {
			return cloneErr(ErrAthleteExists).WithMetadata(map[string]any{
				"user_id":    event.UserID,
				"athlete_id": existing.ID,
			})
		}
		if err != nil && !IsRecordNotFound(err) {
			return err
		}

		athlete, err = h.repo.Athletes().CreateTx(ctx, tx, event.Request.ToAthlete(event.UserID))
		if err != nil {
			if isUniqueViolation(err) {
				return cloneErr(ErrAthleteExists).WithMetadata(map[string]any{"user_id": event.UserID})
			}
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "athlete creation transaction failed")
	}

	recordActivity(ctx, h.activitySink, h.logger, h.now, ActivityEvent{
		EventType: ActivityEventAthleteCreated,
		Actor:     userActor(event.UserID),
		UserID:    formatNumericClaim(event.UserID),
		Metadata: map[string]any{
			"athlete_id":       athlete.ID,
			"experience_level": athlete.ExperienceLevel,
		},
	})

	return athlete, nil
}

// GetAthleteByUser returns the profile owned by userID or ErrAthleteNotFound
func (h *CreateAthleteHandler) GetAthleteByUser(ctx context.Context, userID int64) (*Athlete, error) {
	athlete, err := h.repo.Athletes().GetByUserID(ctx, userID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, cloneErr(ErrAthleteNotFound).WithMetadata(map[string]any{"user_id": userID})
		}
		return nil, err
	}
	return athlete, nil
}

package wodstrat

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// ExperienceLevel is the athlete's self reported training level
type ExperienceLevel = string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// Gender as captured on the athlete profile
type Gender = string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

// User is the account model. The athlete link lives on Athlete.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	LoggedInAt    *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Athlete is the training profile linked one to one with a User
type Athlete struct {
	bun.BaseModel   `bun:"table:athletes,alias:ath"`
	ID              int64           `bun:"id,pk,autoincrement" json:"id,omitempty"`
	UserID          int64           `bun:"user_id,notnull,unique" json:"user_id"`
	User            *User           `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	FirstName       string          `bun:"first_name,notnull" json:"first_name"`
	LastName        string          `bun:"last_name,notnull" json:"last_name"`
	DateOfBirth     *time.Time      `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	Gender          Gender          `bun:"gender" json:"gender,omitempty"`
	HeightCm        float64         `bun:"height_cm" json:"height_cm,omitempty"`
	WeightKg        float64         `bun:"weight_kg" json:"weight_kg,omitempty"`
	ExperienceLevel ExperienceLevel `bun:"experience_level,notnull" json:"experience_level"`
	PrimaryGoal     string          `bun:"primary_goal" json:"primary_goal,omitempty"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

var (
	_ bun.BeforeAppendModelHook = (*User)(nil)
	_ bun.BeforeAppendModelHook = (*Athlete)(nil)
)

// BeforeAppendModel stamps timestamps on insert and update
func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	stampTimestamps(query, &u.CreatedAt, &u.UpdatedAt)
	return nil
}

// BeforeAppendModel stamps timestamps on insert and update
func (a *Athlete) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	stampTimestamps(query, &a.CreatedAt, &a.UpdatedAt)
	return nil
}

func stampTimestamps(query bun.Query, createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if createdAt.IsZero() {
			*createdAt = now
		}
		*updatedAt = now
	case *bun.UpdateQuery:
		*updatedAt = now
	}
}

// Age in whole years at the given instant, zero when unknown
func (a *Athlete) Age(at time.Time) int {
	if a == nil || a.DateOfBirth == nil {
		return 0
	}
	dob := *a.DateOfBirth
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

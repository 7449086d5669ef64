package wodstrat

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	AthleteID *int64 `json:"athleteId,omitempty"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

func newUserResponse(u *User, athleteID *int64) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AthleteID: cloneID(athleteID),
	}
}

type CreateAthleteRequest struct {
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	DateOfBirth     string  `json:"dateOfBirth,omitempty"`
	Gender          string  `json:"gender,omitempty"`
	HeightCm        float64 `json:"heightCm,omitempty"`
	WeightKg        float64 `json:"weightKg,omitempty"`
	ExperienceLevel string  `json:"experienceLevel"`
	PrimaryGoal     string  `json:"primaryGoal,omitempty"`
}

func (r CreateAthleteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.DateOfBirth, validation.By(validateBirthDate)),
		validation.Field(&r.Gender, validation.In(GenderMale, GenderFemale, GenderUnspecified)),
		validation.Field(&r.HeightCm, validation.Min(0.0), validation.Max(300.0)),
		validation.Field(&r.WeightKg, validation.Min(0.0), validation.Max(500.0)),
		validation.Field(
			&r.ExperienceLevel,
			validation.Required,
			validation.In(ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced),
		),
		validation.Field(&r.PrimaryGoal, validation.Length(0, 500)),
	)
}

// ToAthlete maps the request onto a model owned by userID. Call Validate first.
func (r CreateAthleteRequest) ToAthlete(userID int64) *Athlete {
	athlete := &Athlete{
		UserID:          userID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Gender:          r.Gender,
		HeightCm:        r.HeightCm,
		WeightKg:        r.WeightKg,
		ExperienceLevel: r.ExperienceLevel,
		PrimaryGoal:     r.PrimaryGoal,
	}

	if athlete.Gender == "" {
		athlete.Gender = GenderUnspecified
	}

	if r.DateOfBirth != "" {
		if dob, err := time.Parse(DateLayout, r.DateOfBirth); err == nil {
			athlete.DateOfBirth = &dob
		}
	}

	return athlete
}

type AthleteResponse struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"userId"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	DateOfBirth     string  `json:"dateOfBirth,omitempty"`
	Gender          string  `json:"gender,omitempty"`
	HeightCm        float64 `json:"heightCm,omitempty"`
	WeightKg        float64 `json:"weightKg,omitempty"`
	ExperienceLevel string  `json:"experienceLevel"`
	PrimaryGoal     string  `json:"primaryGoal,omitempty"`
}

func NewAthleteResponse(a *Athlete) AthleteResponse {
	out := AthleteResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		Gender:          a.Gender,
		HeightCm:        a.HeightCm,
		WeightKg:        a.WeightKg,
		ExperienceLevel: a.ExperienceLevel,
		PrimaryGoal:     a.PrimaryGoal,
	}
	if a.DateOfBirth != nil {
		out.DateOfBirth = a.DateOfBirth.Format(DateLayout)
	}
	return out
}

// ValidateStringEquals checks a confirmation field against its source
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func validateBirthDate(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	dob, err := time.Parse(DateLayout, s)
	if err != nil {
		return errors.New("must be a date formatted as YYYY-MM-DD")
	}

	if dob.After(time.Now()) {
		return errors.New("must not be in the future")
	}

	return nil
}

// validationErr wraps ozzo errors into a rich bad request error
func validationErr(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]any{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request").
		WithTextCode(TextCodeValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": fields})
}

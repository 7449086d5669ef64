package wodstrat

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the claim set carried by WodStrat bearer tokens.
// The wire shape is {sub, email, athleteId?, exp} with numeric strings
// for sub and athleteId.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	AthleteID string `json:"athleteId,omitempty"`
}

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID parses the numeric subject
func (c *SessionClaims) UserID() (int64, error) {
	return parseNumericClaim(c.RegisteredClaims.Subject)
}

// Athlete parses the optional athlete claim, nil when absent
func (c *SessionClaims) Athlete() (*int64, error) {
	if c.AthleteID == "" {
		return nil, nil
	}
	id, err := parseNumericClaim(c.AthleteID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ToSessionUser maps claims to the identity the client keeps around
func (c *SessionClaims) ToSessionUser() (*SessionUser, error) {
	id, err := c.UserID()
	if err != nil {
		return nil, err
	}

	athleteID, err := c.Athlete()
	if err != nil {
		return nil, err
	}

	return &SessionUser{
		ID:        id,
		Email:     c.Email,
		AthleteID: athleteID,
	}, nil
}

func parseNumericClaim(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func formatNumericClaim(id int64) string {
	return strconv.FormatInt(id, 10)
}

package wodstrat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-wodstrat"
)

func TestAthlete_Age(t *testing.T) {
	dob := time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC)
	athlete := &wodstrat.Athlete{DateOfBirth: &dob}

	assert.Equal(t, 35, athlete.Age(time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 36, athlete.Age(time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, athlete.Age(time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, athlete.Age(time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, (&wodstrat.Athlete{}).Age(time.Now()))
	assert.Equal(t, 0, (*wodstrat.Athlete)(nil).Age(time.Now()))
}

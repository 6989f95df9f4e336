package service

import (
	"time"

	"github.com/noah-isme/studio-ops-api/internal/models"
)

// studioClock turns wall time into the studio's calendar date.
type studioClock struct {
	now func() time.Time
	loc *time.Location
}

func newStudioClock(now func() time.Time, loc *time.Location) studioClock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return studioClock{now: now, loc: loc}
}

func (c studioClock) today() models.Date {
	return models.DateOf(c.now().In(c.loc))
}

// dateOrToday returns d, or the current studio date when d is missing.
func (c studioClock) dateOrToday(d models.Date) models.Date {
	if d.IsZero() {
		return c.today()
	}
	return d
}

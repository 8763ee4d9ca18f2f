package database

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const microsecondsPerDay = 24 * int64(time.Hour/time.Microsecond)

// durationToPgInterval converts a duration to a PostgreSQL interval value.
// Whole days are stored in the Days component, the remainder in Microseconds.
func durationToPgInterval(d time.Duration) pgtype.Interval {
	us := d.Microseconds()
	return pgtype.Interval{
		Microseconds: us % microsecondsPerDay,
		Days:         int32(us / microsecondsPerDay),
		Valid:        true,
	}
}

// pgIntervalToDuration converts a PostgreSQL interval back to a duration.
// Month components are rejected: months have no fixed length, so an alert
// window expressed in months cannot be evaluated against a log timestamp.
func pgIntervalToDuration(iv pgtype.Interval) (time.Duration, error) {
	if !iv.Valid {
		return 0, fmt.Errorf("interval is not valid")
	}
	if iv.Months != 0 {
		return 0, fmt.Errorf("interval with months component is not supported")
	}
	us := iv.Microseconds + int64(iv.Days)*microsecondsPerDay
	return time.Duration(us) * time.Microsecond, nil
}

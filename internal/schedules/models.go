package schedules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("schedules: not found")
	ErrForbidden       = errors.New("schedules: schedule belongs to another member")
	ErrInvalidArgument = errors.New("schedules: invalid argument")
	ErrMemberNotFound  = errors.New("schedules: member not found")
)

type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// ClockTime is a wall-clock time of day. Seconds are kept for round trips
// but ignored when deciding whether a schedule is due.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseClockTime accepts "HH:MM" or "HH:MM:SS".
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("%w: call time %q", ErrInvalidArgument, s)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

func (c ClockTime) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Date is a calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidArgument, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Time() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

func (d Date) After(o Date) bool { return d.Time().After(o.Time()) }

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

func (d Date) String() string { return d.Time().Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Schedule is a recurring automated call for one member.
// Nothing about past firings is stored; whether it is due is recomputed
// every tick.
type Schedule struct {
	ID        int64     `json:"schedule_id"`
	MemberID  string    `json:"member_id"`
	StartDate Date      `json:"start_date"`
	Frequency Frequency `json:"frequency"`
	CallTime  ClockTime `json:"call_time"`
	Active    bool      `json:"is_active"`

	// PhoneNumber is joined from the member for dispatch; not part of the schedule row.
	PhoneNumber string `json:"-"`
}

// Due reports whether s should fire in the minute containing now.
// now must already be in the scheduler's time zone.
func Due(s Schedule, now time.Time) bool {
	today := DateOf(now)
	if s.StartDate.After(today) {
		return false
	}
	if s.CallTime.Hour != now.Hour() || s.CallTime.Minute != now.Minute() {
		return false
	}
	switch s.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return s.StartDate.Weekday() == today.Weekday()
	case FrequencyMonthly:
		return s.StartDate.Day == today.Day
	default:
		return false
	}
}

package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mentortrack/internal/apierr"
	"mentortrack/internal/roster"
)

// Store is the attendance persistence surface the service needs.
type Store interface {
	Exists(ctx context.Context, studentID, date string, courseID int64) (bool, error)
	Insert(ctx context.Context, row Row) error
	CourseIDByCode(ctx context.Context, code string) (int64, bool, error)
}

// Directory is the roster surface the service needs.
type Directory interface {
	StudentExists(ctx context.Context, studentID string) (bool, error)
	TermByShortName(ctx context.Context, shortName string) (*roster.Term, error)
}

// Input carries boundary-resolved parameters for one attendance record.
// Term is the term short name; empty means the boundary could not resolve a
// current term, which becomes an accumulated validation error. Date is
// internal YYYY-MM-DD or empty for "today".
type Input struct {
	StudentID  string
	CourseCode string
	Term       string
	Date       string
	Time       string
}

// Result echoes the recorded values back to the caller using display formats.
type Result struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	StudentID string `json:"student_id"`
	TermID    string `json:"term_id"`
	CourseID  string `json:"course_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// Service validates and records attendance events.
type Service struct {
	store Store
	dir   Directory
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a service. loc is the reference zone for date resolution.
func NewService(store Store, dir Directory, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, dir: dir, loc: loc, now: time.Now}
}

// Record validates the input, accumulating every applicable violation before
// failing, then inserts exactly one attendance row.
func (s *Service) Record(ctx context.Context, in Input) (*Result, error) {
	resolved, err := resolveTimestamp(s.now(), in.Date, in.Time, s.loc)
	if err != nil {
		return nil, err
	}

	var errs []string

	exists, err := s.dir.StudentExists(ctx, in.StudentID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if !exists {
		errs = append(errs, fmt.Sprintf("Student ID: %s does not exist", in.StudentID))
	}

	var term *roster.Term
	if in.Term == "" {
		errs = append(errs, "No current term found.")
	} else {
		term, err = s.dir.TermByShortName(ctx, in.Term)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if term == nil {
			errs = append(errs, "Invalid term ID")
		}
	}

	courseID, found, err := s.store.CourseIDByCode(ctx, in.CourseCode)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if !found {
		errs = append(errs, fmt.Sprintf("Course ID: %s does not exist", in.CourseCode))
	} else {
		dup, err := s.store.Exists(ctx, in.StudentID, resolved.Date, courseID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if dup {
			errs = append(errs, "The student's attendance record has already been recorded for the date specified")
		}
	}

	if len(errs) > 0 {
		return nil, apierr.Validation(errs)
	}

	err = s.store.Insert(ctx, Row{
		StudentID: in.StudentID,
		TermID:    term.ID,
		CourseID:  courseID,
		Date:      resolved.Date,
		Time:      resolved.DBTime,
	})
	if errors.Is(err, ErrDuplicate) {
		return nil, apierr.Validation([]string{"The student's attendance record has already been recorded for the date specified"})
	}
	if err != nil {
		return nil, apierr.Internal(err)
	}

	return &Result{
		Status:    "success",
		Message:   "Student attendance recorded successfully.",
		StudentID: in.StudentID,
		TermID:    term.ShortName,
		CourseID:  in.CourseCode,
		Date:      resolved.DisplayDate,
		Time:      resolved.DisplayTime,
	}, nil
}

// resolved holds the outcome of date/time resolution.
type resolved struct {
	Date        string // YYYY-MM-DD, what identity checks and inserts use
	DBTime      string // HH:MM:SS
	DisplayDate string // MM-DD-YYYY
	DisplayTime string // hh:mmAM
}

// resolveTimestamp combines the optional date and time with "now" in the
// reference zone. A timestamp within the first 20 minutes after midnight is
// attributed to the previous day, but only when the caller supplied no
// explicit date (an explicit date states intent; only "today" is ambiguous
// right after midnight).
func resolveTimestamp(now time.Time, date, timeStr string, loc *time.Location) (resolved, error) {
	nowLoc := now.In(loc)
	dateSupplied := date != ""

	day := nowLoc
	if dateSupplied {
		parsed, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return resolved{}, apierr.Invalid("Invalid date format. Use YYYY-MM-DD.")
		}
		day = parsed
	}

	hour, min, sec := nowLoc.Hour(), nowLoc.Minute(), nowLoc.Second()
	if timeStr != "" {
		t, err := parseTimeOfDay(timeStr)
		if err != nil {
			return resolved{}, err
		}
		hour, min, sec = t.Hour(), t.Minute(), t.Second()
	}

	ts := time.Date(day.Year(), day.Month(), day.Day(), hour, min, sec, 0, loc)
	if !dateSupplied && ts.Hour() == 0 && ts.Minute() < 20 {
		ts = ts.AddDate(0, 0, -1)
	}

	return resolved{
		Date:        ts.Format("2006-01-02"),
		DBTime:      ts.Format("15:04:05"),
		DisplayDate: ts.Format("01-02-2006"),
		DisplayTime: ts.Format("03:04PM"),
	}, nil
}

func parseTimeOfDay(s string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04", "03:04PM", "3:04PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apierr.Invalid("Invalid time format. Use HH:MM.")
}

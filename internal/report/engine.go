package report

import (
	"context"
	"fmt"
	"sort"

	"mentortrack/internal/apierr"
	"mentortrack/internal/attendance"
	"mentortrack/internal/roster"
)

// Ledger supplies recorded attendance grouped by date.
type Ledger interface {
	Ledger(ctx context.Context, f attendance.Filter) (map[string][]string, error)
}

// Enrollment resolves the enrolled-student set for a term.
type Enrollment interface {
	EnrolledStudents(ctx context.Context, termID int64) ([]string, error)
}

// Directory supplies student and term details for rendered reports.
type Directory interface {
	StudentDetail(ctx context.Context, studentID string) (*roster.StudentDetail, error)
	TermByID(ctx context.Context, id int64) (*roster.Term, error)
}

// Dispatcher delivers a rendered report by email and returns a
// confirmation message.
type Dispatcher interface {
	DispatchReport(ctx context.Context, html string, absent bool) (string, error)
}

// Params selects and shapes a report.
type Params struct {
	TermID    *int64
	StudentID string
	Date      string // YYYY-MM-DD
	Absent    bool
	Format    string // json (default), html, email
}

// Result is the report payload. Data maps date to the student ids present
// (or absent); an empty set is an empty slice so it serializes as [], not
// null. HTML is populated for format=html.
type Result struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Data    map[string][]string `json:"data"`
	HTML    string              `json:"-"`
}

// Engine composes the ledger and enrollment resolver into present/absent
// reports.
type Engine struct {
	ledger     Ledger
	enrollment Enrollment
	directory  Directory
	dispatcher Dispatcher
}

// NewEngine creates an engine. dispatcher may be nil when email delivery is
// not configured.
func NewEngine(ledger Ledger, enrollment Enrollment, directory Directory, dispatcher Dispatcher) *Engine {
	return &Engine{ledger: ledger, enrollment: enrollment, directory: directory, dispatcher: dispatcher}
}

// Generate builds a report. With a student id it reports that student's
// per-date presence; otherwise it partitions enrollment into present and
// absent sets per recorded date. The date universe is always the attendance
// ledger, never the calendar.
func (e *Engine) Generate(ctx context.Context, p Params) (*Result, error) {
	if p.TermID == nil && p.StudentID == "" && p.Date == "" {
		return &Result{
			Status:  "info",
			Message: "At least one of term_id, student_id, or date is required.",
			Data:    map[string][]string{},
		}, nil
	}

	presentByDate, err := e.ledger.Ledger(ctx, attendance.Filter{
		TermID:    p.TermID,
		StudentID: p.StudentID,
		Date:      p.Date,
	})
	if err != nil {
		return nil, apierr.Internal(err)
	}

	var enrolled []string
	if p.TermID != nil {
		enrolled, err = e.enrollment.EnrolledStudents(ctx, *p.TermID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
	}

	data := make(map[string][]string)
	if p.StudentID != "" {
		// Membership is only checkable when a term scopes enrollment;
		// per-student queries without a term skip the check (legacy
		// behavior, kept deliberately).
		if p.TermID != nil && len(enrolled) > 0 && !contains(enrolled, p.StudentID) {
			return nil, apierr.Validation([]string{fmt.Sprintf("Student ID: %s is NOT enrolled.", p.StudentID)})
		}
		for date, present := range presentByDate {
			if p.Absent {
				if !contains(present, p.StudentID) {
					data[date] = []string{}
				}
			} else if contains(present, p.StudentID) {
				data[date] = []string{p.StudentID}
			}
		}
	} else {
		for date, present := range presentByDate {
			if p.Absent {
				data[date] = subtract(enrolled, present)
			} else {
				data[date] = intersect(enrolled, present)
			}
		}
	}

	switch p.Format {
	case "html", "email":
		var termShortName string
		if p.TermID != nil {
			t, err := e.directory.TermByID(ctx, *p.TermID)
			if err != nil {
				return nil, apierr.Internal(err)
			}
			if t != nil {
				termShortName = t.ShortName
			}
		}
		html, err := e.renderHTML(ctx, data, termShortName, p.Absent)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if p.Format == "html" {
			return &Result{Status: "success", Data: data, HTML: html}, nil
		}
		if e.dispatcher == nil {
			return nil, apierr.Internal(fmt.Errorf("email dispatch not configured"))
		}
		msg, err := e.dispatcher.DispatchReport(ctx, html, p.Absent)
		if err != nil {
			return nil, err
		}
		return &Result{Status: "success", Message: msg, Data: data}, nil
	default:
		return &Result{Status: "success", Data: data}, nil
	}
}

func contains(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

// subtract returns enrolled − present, sorted.
func subtract(enrolled, present []string) []string {
	out := []string{}
	for _, id := range enrolled {
		if !contains(present, id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// intersect returns enrolled ∩ present, sorted.
func intersect(enrolled, present []string) []string {
	out := []string{}
	for _, id := range enrolled {
		if contains(present, id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

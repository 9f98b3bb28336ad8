package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mentortrack/internal/apierr"
)

// ErrNoLeadersForTerm is returned by AssignLeader when the term has no leaders.
var ErrNoLeadersForTerm = errors.New("no leaders for term")

// Store is the persistence surface the service needs.
type Store interface {
	StudentExistsForTerm(ctx context.Context, studentID string, termID int64) (bool, error)
	InsertStudent(ctx context.Context, s NewStudent) error
	DeleteStudent(ctx context.Context, studentID string) error
	StudentNameByID(ctx context.Context, studentID string) (string, bool, error)
	StudentIDByName(ctx context.Context, firstName, lastName string) (string, bool, error)
	TermByID(ctx context.Context, id int64) (*Term, error)
	LeaderIDsForTerm(ctx context.Context, termID int64) ([]int64, error)
	StudentCountsByLeader(ctx context.Context, termID int64) (map[int64]int, error)
	FindLeader(ctx context.Context, firstName, lastName string, termID *int64) (bool, string, error)
	InsertLeader(ctx context.Context, l NewLeader) error
}

// Service owns roster mutations and leader load balancing.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// AddStudentInput carries boundary-resolved parameters for a new student.
// TermID is nil when neither the caller nor the current-term resolver could
// produce one; that becomes an accumulated validation error.
type AddStudentInput struct {
	StudentID    string
	FirstName    string
	LastName     string
	Email        *string
	Phone        *string
	LeaderID     *int64
	TermID       *int64
	AssignLeader bool
}

// AddLeaderInput carries parameters for a new leader.
type AddLeaderInput struct {
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	TermID    *int64
}

// Result is a success payload for roster mutations.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AssignLeader selects the least-loaded leader of a term. Leaders with zero
// students are seeded into the count map so they can win; ties go to the
// numerically smallest leader id.
func (s *Service) AssignLeader(ctx context.Context, termID int64) (int64, error) {
	ids, err := s.store.LeaderIDsForTerm(ctx, termID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrNoLeadersForTerm
	}
	counts, err := s.store.StudentCountsByLeader(ctx, termID)
	if err != nil {
		return 0, err
	}
	best := ids[0]
	bestCount := counts[best]
	for _, id := range ids[1:] {
		if n := counts[id]; n < bestCount || (n == bestCount && id < best) {
			best, bestCount = id, n
		}
	}
	return best, nil
}

// AddStudent validates and inserts a student, accumulating every applicable
// violation before failing.
func (s *Service) AddStudent(ctx context.Context, in AddStudentInput) (*Result, error) {
	var errs []string

	var term *Term
	if in.TermID == nil {
		errs = append(errs, fmt.Sprintf("Unable to determine the current term (current date: %s).",
			s.now().Format("2006-01-02")))
	} else {
		t, err := s.store.TermByID(ctx, *in.TermID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if t == nil {
			errs = append(errs, fmt.Sprintf("Term with ID %d does not exist", *in.TermID))
		}
		term = t
	}

	if in.AssignLeader && in.LeaderID == nil && in.TermID != nil {
		leaderID, err := s.AssignLeader(ctx, *in.TermID)
		switch {
		case errors.Is(err, ErrNoLeadersForTerm):
			termInfo := "Unknown Term"
			if term != nil {
				termInfo = term.ShortName + " - " + term.LongName
			}
			errs = append(errs, fmt.Sprintf("%s - No leader for term ID: %d (%s)",
				in.StudentID, *in.TermID, termInfo))
		case err != nil:
			return nil, apierr.Internal(err)
		default:
			in.LeaderID = &leaderID
		}
	}

	if len(errs) > 0 {
		return nil, apierr.Validation(errs)
	}

	exists, err := s.store.StudentExistsForTerm(ctx, in.StudentID, *in.TermID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if exists {
		return nil, apierr.Conflict("Student with this Student ID: %s already exists for the selected term", in.StudentID)
	}

	if err := s.store.InsertStudent(ctx, NewStudent{
		StudentID: in.StudentID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		LeaderID:  in.LeaderID,
		TermID:    *in.TermID,
	}); err != nil {
		return nil, apierr.Internal(err)
	}
	return &Result{Status: "success", Message: fmt.Sprintf("Student ID: %s added successfully", in.StudentID)}, nil
}

// AddLeader validates and inserts a leader. A nil term keeps the leader
// term-independent; uniqueness is checked per (first, last, term) bucket
// with NULL as its own bucket.
func (s *Service) AddLeader(ctx context.Context, in AddLeaderInput) (*Result, error) {
	if in.TermID != nil {
		t, err := s.store.TermByID(ctx, *in.TermID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if t == nil {
			return nil, apierr.Validation([]string{fmt.Sprintf("Term with ID %d does not exist", *in.TermID)})
		}
	}

	exists, termLabel, err := s.store.FindLeader(ctx, in.FirstName, in.LastName, in.TermID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if exists {
		if in.TermID == nil {
			return nil, apierr.Conflict("Leader already exists without a term")
		}
		return nil, apierr.Conflict("Leader already exists for the selected term: %s", termLabel)
	}

	if err := s.store.InsertLeader(ctx, NewLeader{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		TermID:    in.TermID,
	}); err != nil {
		return nil, apierr.Internal(err)
	}
	return &Result{Status: "success", Message: fmt.Sprintf("Leader %s %s added successfully", in.FirstName, in.LastName)}, nil
}

// RemoveStudentByID deletes a student after resolving their name.
func (s *Service) RemoveStudentByID(ctx context.Context, studentID string) (*Result, error) {
	name, ok, err := s.store.StudentNameByID(ctx, studentID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if !ok {
		return nil, apierr.NotFound("Student ID: %s not found!", studentID)
	}
	if err := s.store.DeleteStudent(ctx, studentID); err != nil {
		return nil, apierr.Internal(err)
	}
	return &Result{Status: "success", Message: fmt.Sprintf("Student: %s removed successfully", name)}, nil
}

// RemoveStudentByName deletes a student looked up by "First Last".
func (s *Service) RemoveStudentByName(ctx context.Context, name string) (*Result, error) {
	first, last := splitName(name)
	id, ok, err := s.store.StudentIDByName(ctx, first, last)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if !ok {
		return nil, apierr.NotFound("Student: %s not found!", name)
	}
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return nil, apierr.Internal(err)
	}
	return &Result{Status: "success", Message: fmt.Sprintf("Student ID: %s - %s removed successfully", id, name)}, nil
}

func splitName(name string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

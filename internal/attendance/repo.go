package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Filter narrows a ledger query. Nil/empty fields are skipped; the report
// engine guarantees at least one is set.
type Filter struct {
	TermID    *int64
	StudentID string
	Date      string // YYYY-MM-DD
}

// Row is one attendance insert.
type Row struct {
	StudentID string
	TermID    int64
	CourseID  int64
	Date      string // YYYY-MM-DD
	Time      string // HH:MM:SS
}

// ErrDuplicate signals that an identical (student, date, course) row exists.
// The unique index makes this hold even when two requests race the check.
var ErrDuplicate = errors.New("attendance already recorded")

// Repository persists attendance in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ledger returns recorded attendance grouped by date. Rows come back ordered
// by (date, student_id) so grouped slices are deterministic.
func (r *Repository) Ledger(ctx context.Context, f Filter) (map[string][]string, error) {
	query := `
		SELECT a.date::text, a.student_id
		FROM attendance a
		JOIN students s ON a.student_id = s.student_id`
	args := []any{}
	clauses := []string{}
	if f.TermID != nil {
		args = append(args, *f.TermID)
		clauses = append(clauses, fmt.Sprintf("a.term_id = $%d", len(args)))
	}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		clauses = append(clauses, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		clauses = append(clauses, fmt.Sprintf("a.date = $%d", len(args)))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY a.date, a.student_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDate := make(map[string][]string)
	for rows.Next() {
		var date, studentID string
		if err := rows.Scan(&date, &studentID); err != nil {
			return nil, err
		}
		byDate[date] = append(byDate[date], studentID)
	}
	return byDate, rows.Err()
}

// Exists reports whether attendance is already recorded for the student on
// the date in the course.
func (r *Repository) Exists(ctx context.Context, studentID, date string, courseID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance
		WHERE student_id = $1 AND date = $2 AND course_id = $3
	`, studentID, date, courseID).Scan(&count)
	return count > 0, err
}

// Insert writes one attendance row. ON CONFLICT backstops the service-level
// duplicate check so racing identical requests cannot both land.
func (r *Repository) Insert(ctx context.Context, row Row) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, term_id, date, course_id, time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, date, course_id) DO NOTHING
	`, row.StudentID, row.TermID, row.Date, row.CourseID, row.Time)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// CourseIDByCode maps an external course code to its internal id.
func (r *Repository) CourseIDByCode(ctx context.Context, code string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM courses WHERE course_code = $1`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

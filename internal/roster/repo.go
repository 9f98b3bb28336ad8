package roster

import (
	"context"
	"database/sql"
	"errors"
)

// Term is an academic period scoping students, leaders, courses and attendance.
type Term struct {
	ID        int64
	ShortName string
	LongName  string
}

// StudentDetail carries the fields rendered on report rows.
type StudentDetail struct {
	StudentID       string
	FirstName       string
	LastName        string
	LeaderFirstName string
	LeaderLastName  string
}

// NewStudent is the insert payload for a student.
type NewStudent struct {
	StudentID string
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	LeaderID  *int64
	TermID    int64
}

// NewLeader is the insert payload for a leader. TermID nil means the leader
// exists term-independently.
type NewLeader struct {
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	TermID    *int64
}

// Repository persists roster data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StudentExists reports whether any student row carries the external id.
func (r *Repository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE student_id = $1`, studentID).Scan(&count)
	return count > 0, err
}

// StudentExistsForTerm checks the (student_id, term_id) uniqueness bucket.
func (r *Repository) StudentExistsForTerm(ctx context.Context, studentID string, termID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE student_id = $1 AND term_id = $2`, studentID, termID).Scan(&count)
	return count > 0, err
}

// InsertStudent writes a new student row.
func (r *Repository) InsertStudent(ctx context.Context, s NewStudent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (student_id, first_name, last_name, email, phone, leader_id, term_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.StudentID, s.FirstName, s.LastName, s.Email, s.Phone, s.LeaderID, s.TermID)
	return err
}

// DeleteStudent removes every row carrying the external student id.
func (r *Repository) DeleteStudent(ctx context.Context, studentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE student_id = $1`, studentID)
	return err
}

// StudentNameByID returns "First Last" for a student id.
func (r *Repository) StudentNameByID(ctx context.Context, studentID string) (string, bool, error) {
	var first, last string
	err := r.db.QueryRowContext(ctx,
		`SELECT first_name, last_name FROM students WHERE student_id = $1`, studentID).Scan(&first, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return first + " " + last, true, nil
}

// StudentIDByName resolves an external student id from first and last name.
func (r *Repository) StudentIDByName(ctx context.Context, firstName, lastName string) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT student_id FROM students WHERE first_name = $1 AND last_name = $2`, firstName, lastName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// StudentDetail fetches a student plus the assigned leader's name for report
// rows. A student without a leader gets "No Leader".
func (r *Repository) StudentDetail(ctx context.Context, studentID string) (*StudentDetail, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.student_id, s.first_name, s.last_name,
		       COALESCE(l.first_name, 'No Leader') AS leader_first_name,
		       COALESCE(l.last_name, '') AS leader_last_name
		FROM students s
		LEFT JOIN leaders l ON s.leader_id = l.id
		WHERE s.student_id = $1
	`, studentID)
	var d StudentDetail
	if err := row.Scan(&d.StudentID, &d.FirstName, &d.LastName, &d.LeaderFirstName, &d.LeaderLastName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// TermByID returns a term row or nil when missing.
func (r *Repository) TermByID(ctx context.Context, id int64) (*Term, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, short_name, long_name FROM terms WHERE id = $1`, id)
	return scanTerm(row)
}

// TermByShortName returns a term row or nil when missing.
func (r *Repository) TermByShortName(ctx context.Context, shortName string) (*Term, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, short_name, long_name FROM terms WHERE short_name = $1 LIMIT 1`, shortName)
	return scanTerm(row)
}

// CurrentTerm returns the term whose date window contains today, or nil.
func (r *Repository) CurrentTerm(ctx context.Context, today string) (*Term, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, short_name, long_name FROM terms
		WHERE start_date <= $1 AND end_date >= $1
		ORDER BY start_date DESC LIMIT 1
	`, today)
	return scanTerm(row)
}

func scanTerm(row *sql.Row) (*Term, error) {
	var t Term
	if err := row.Scan(&t.ID, &t.ShortName, &t.LongName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// LeaderIDsForTerm returns all leader ids for a term, smallest first.
func (r *Repository) LeaderIDsForTerm(ctx context.Context, termID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM leaders WHERE term_id = $1 ORDER BY id`, termID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StudentCountsByLeader returns per-leader student counts for a term.
// Leaders without students do not appear; the balancer seeds them with zero.
func (r *Repository) StudentCountsByLeader(ctx context.Context, termID int64) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT leader_id, COUNT(*) FROM students
		WHERE term_id = $1 AND leader_id IS NOT NULL
		GROUP BY leader_id
	`, termID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// FindLeader checks the (first_name, last_name, term_id) uniqueness bucket;
// a NULL term is its own bucket. termLabel names the clashing term when one
// exists.
func (r *Repository) FindLeader(ctx context.Context, firstName, lastName string, termID *int64) (bool, string, error) {
	if termID == nil {
		var count int
		err := r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM leaders
			WHERE first_name = $1 AND last_name = $2 AND term_id IS NULL
		`, firstName, lastName).Scan(&count)
		return count > 0, "", err
	}
	var short, long string
	err := r.db.QueryRowContext(ctx, `
		SELECT t.short_name, t.long_name
		FROM leaders l
		JOIN terms t ON l.term_id = t.id
		WHERE l.first_name = $1 AND l.last_name = $2 AND l.term_id = $3
	`, firstName, lastName, *termID).Scan(&short, &long)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	label := short
	if label == "" {
		label = long
	}
	return true, label, nil
}

// InsertLeader writes a new leader row.
func (r *Repository) InsertLeader(ctx context.Context, l NewLeader) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leaders (first_name, last_name, email, phone, term_id)
		VALUES ($1, $2, $3, $4, $5)
	`, l.FirstName, l.LastName, l.Email, l.Phone, l.TermID)
	return err
}

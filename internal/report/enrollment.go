package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// validCourseSuffix marks the canonical roster-bearing course of a term.
// Only courses whose code ends with it count toward enrollment.
const validCourseSuffix = "MLC-0000-1"

// CourseStore resolves enrollment from the denormalized course rosters.
type CourseStore struct {
	db *sql.DB
}

// NewCourseStore creates a store.
func NewCourseStore(db *sql.DB) *CourseStore {
	return &CourseStore{db: db}
}

// EnrolledStudents unions the JSON rosters of every valid course in the
// term and deduplicates. No matching courses yields an empty set, not an
// error; callers decide whether empty enrollment matters.
func (s *CourseStore) EnrolledStudents(ctx context.Context, termID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT students FROM courses
		WHERE term_id = $1 AND course_code LIKE '%' || $2
	`, termID, validCourseSuffix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrolled []string
	seen := make(map[string]bool)
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		for _, id := range decodeRoster([]byte(raw.String)) {
			if !seen[id] {
				seen[id] = true
				enrolled = append(enrolled, id)
			}
		}
	}
	return enrolled, rows.Err()
}

// decodeRoster parses a course's students column. The column is a JSON
// array of ids; malformed or empty JSON contributes nothing. Numeric ids
// are tolerated and rendered in their canonical form.
func decodeRoster(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var entries []any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	var ids []string
	for _, e := range entries {
		switch v := e.(type) {
		case string:
			ids = append(ids, v)
		case float64:
			ids = append(ids, fmt.Sprintf("%.0f", v))
		}
	}
	return ids
}

package backup

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"mentortrack/internal/apierr"
)

// Result reports a completed backup.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	HTML    string `json:"-"`
}

// Runner shells out to pg_dump to snapshot the database.
type Runner struct {
	pgDumpPath  string
	databaseURL string
	dir         string
	now         func() time.Time
}

// NewRunner creates a runner writing dumps into dir.
func NewRunner(pgDumpPath, databaseURL, dir string) *Runner {
	return &Runner{pgDumpPath: pgDumpPath, databaseURL: databaseURL, dir: dir, now: time.Now}
}

// Run writes backup_<timestamp>.sql and returns a confirmation in the
// requested format (json default, or a small html page).
func (r *Runner) Run(ctx context.Context, format string) (*Result, error) {
	file := fmt.Sprintf("backup_%s.sql", r.now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(r.dir, file)

	cmd := exec.CommandContext(ctx, r.pgDumpPath, "--dbname", r.databaseURL, "--file", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, apierr.Internal(fmt.Errorf("pg_dump failed: %v: %s", err, out))
	}

	res := &Result{Status: "success", Message: "Database backup created successfully.", File: file}
	if format == "html" {
		res.HTML = fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Database Backup</title></head>
<body><div class="container"><h1>Database Backup</h1>
<p>Database backup created successfully. <a href="%s">Download backup</a></p>
</div></body></html>`, file)
	}
	return res, nil
}

package report

import (
	"bytes"
	"context"
	"html/template"
	"sort"
	"strings"
	"time"
)

type reportRow struct {
	Found     bool
	StudentID string
	FirstName string
	LastName  string
	Leader    string
}

type reportSection struct {
	DisplayDate string
	Rows        []reportRow
}

type reportPage struct {
	Title    string
	Kind     string
	Term     string
	Sections []reportSection
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; background-color: #f0f0f0; text-align: center; padding: 20px; }
.container { max-width: 800px; margin: 0 auto; background-color: #fff; border-radius: 8px; box-shadow: 0 0 10px rgba(0,0,0,0.1); padding: 20px; }
h1 { color: #333; margin-bottom: 20px; }
table { width: 100%; border-collapse: collapse; margin-top: 20px; }
th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
th { background-color: #f0f0f0; }
.report-info { text-align: center; margin-bottom: 20px; font-size: 20px; }
</style>
</head>
<body>
<div class="container">
<h1>{{.Title}}</h1>
<h2>Term: {{.Term}}</h2>
{{if .Sections}}{{range .Sections}}
<div class="report-info"><p>{{$.Kind}} Details for {{.DisplayDate}}</p></div>
<table>
<thead><tr><th>Student ID</th><th>First Name</th><th>Last Name</th><th>Group Leader</th></tr></thead>
<tbody>
{{range .Rows}}{{if .Found}}<tr><td>{{.StudentID}}</td><td>{{.FirstName}}</td><td>{{.LastName}}</td><td>{{.Leader}}</td></tr>
{{else}}<tr><td style="text-align: center;" colspan="4">Student details not found</td></tr>
{{end}}{{end}}</tbody>
</table>
{{end}}{{else}}<p>No students found for the selected criteria.</p>{{end}}
</div>
</body>
</html>
`))

// renderHTML renders the per-date report grouped into tables. A failed or
// missing student lookup degrades to a placeholder row instead of aborting
// the report.
func (e *Engine) renderHTML(ctx context.Context, data map[string][]string, termShortName string, absent bool) (string, error) {
	title, kind := "Attendance Report", "Attendance"
	if absent {
		title, kind = "Absent Report", "Absent"
	}

	dates := make([]string, 0, len(data))
	for date := range data {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	page := reportPage{Title: title, Kind: kind, Term: termShortName}
	for _, date := range dates {
		section := reportSection{DisplayDate: displayDate(date)}
		for _, studentID := range data[date] {
			detail, err := e.directory.StudentDetail(ctx, studentID)
			if err != nil || detail == nil {
				section.Rows = append(section.Rows, reportRow{Found: false})
				continue
			}
			section.Rows = append(section.Rows, reportRow{
				Found:     true,
				StudentID: detail.StudentID,
				FirstName: detail.FirstName,
				LastName:  detail.LastName,
				Leader:    strings.TrimSpace(detail.LeaderFirstName + " " + detail.LeaderLastName),
			})
		}
		page.Sections = append(page.Sections, section)
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// displayDate converts internal YYYY-MM-DD to the MM-DD-YYYY shown to users.
func displayDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("01-02-2006")
}

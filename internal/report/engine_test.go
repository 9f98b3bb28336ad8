package report

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"mentortrack/internal/apierr"
	"mentortrack/internal/attendance"
	"mentortrack/internal/roster"
)

type fakeLedger struct {
	data map[string][]string
}

func (f *fakeLedger) Ledger(ctx context.Context, _ attendance.Filter) (map[string][]string, error) {
	return f.data, nil
}

type fakeEnrollment struct {
	ids []string
}

func (f *fakeEnrollment) EnrolledStudents(ctx context.Context, _ int64) ([]string, error) {
	return f.ids, nil
}

type fakeDirectory struct {
	details map[string]*roster.StudentDetail
	term    *roster.Term
	termErr error
}

func (f *fakeDirectory) StudentDetail(ctx context.Context, id string) (*roster.StudentDetail, error) {
	return f.details[id], nil
}

func (f *fakeDirectory) TermByID(ctx context.Context, _ int64) (*roster.Term, error) {
	return f.term, f.termErr
}

type fakeDispatcher struct {
	html   string
	absent bool
	err    error
}

func (f *fakeDispatcher) DispatchReport(ctx context.Context, html string, absent bool) (string, error) {
	f.html, f.absent = html, absent
	if f.err != nil {
		return "", f.err
	}
	return "Email sent successfully.", nil
}

func newTestEngine(ledger map[string][]string, enrolled []string) *Engine {
	return NewEngine(
		&fakeLedger{data: ledger},
		&fakeEnrollment{ids: enrolled},
		&fakeDirectory{details: map[string]*roster.StudentDetail{}},
		nil,
	)
}

func int64p(v int64) *int64 { return &v }

func TestGenerateNoCriteriaIsInfo(t *testing.T) {
	e := newTestEngine(nil, nil)
	res, err := e.Generate(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, "info", res.Status)
	require.NotEmpty(t, res.Message)
	require.Empty(t, res.Data)
}

func TestGeneratePresentAndAbsentSets(t *testing.T) {
	ledger := map[string][]string{"2024-03-01": {"S1", "S2"}}
	e := newTestEngine(ledger, []string{"S1", "S2", "S3"})

	res, err := e.Generate(context.Background(), Params{TermID: int64p(1), Date: "2024-03-01"})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"2024-03-01": {"S1", "S2"}}, res.Data)

	res, err = e.Generate(context.Background(), Params{TermID: int64p(1), Date: "2024-03-01", Absent: true})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"2024-03-01": {"S3"}}, res.Data)
}

func TestGeneratePartitionsEnrollment(t *testing.T) {
	ledger := map[string][]string{
		"2024-03-01": {"S2", "S4"},
		"2024-03-02": {"S1", "S2", "S3", "S4"},
		"2024-03-03": {},
	}
	enrolled := []string{"S1", "S2", "S3", "S4"}
	e := newTestEngine(ledger, enrolled)

	present, err := e.Generate(context.Background(), Params{TermID: int64p(1)})
	require.NoError(t, err)
	absent, err := e.Generate(context.Background(), Params{TermID: int64p(1), Absent: true})
	require.NoError(t, err)

	for date := range ledger {
		union := append(append([]string{}, present.Data[date]...), absent.Data[date]...)
		sort.Strings(union)
		require.Equal(t, enrolled, union, "present and absent must partition enrollment on %s", date)
		for _, id := range present.Data[date] {
			require.NotContains(t, absent.Data[date], id)
		}
	}
}

func TestGenerateEmptySetSerializesAsEmptyList(t *testing.T) {
	// Nobody enrolled showed up, so the date key holds an empty set.
	ledger := map[string][]string{"2024-03-01": {"X9"}}
	e := newTestEngine(ledger, []string{"S1"})

	res, err := e.Generate(context.Background(), Params{TermID: int64p(1)})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"2024-03-01":[]`)
	require.NotContains(t, string(raw), "null")
}

func TestGenerateIsIdempotent(t *testing.T) {
	ledger := map[string][]string{
		"2024-03-01": {"S2", "S1"},
		"2024-03-02": {"S3"},
	}
	e := newTestEngine(ledger, []string{"S3", "S1", "S2"})

	first, err := e.Generate(context.Background(), Params{TermID: int64p(1)})
	require.NoError(t, err)
	second, err := e.Generate(context.Background(), Params{TermID: int64p(1)})
	require.NoError(t, err)

	rawFirst, err := json.Marshal(first)
	require.NoError(t, err)
	rawSecond, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, rawFirst, rawSecond)
}

func TestGenerateStudentNotEnrolled(t *testing.T) {
	e := newTestEngine(map[string][]string{}, []string{"S1", "S2"})

	_, err := e.Generate(context.Background(), Params{TermID: int64p(1), StudentID: "S9"})
	require.Error(t, err)
	require.Equal(t, "Student ID: S9 is NOT enrolled.", err.Error())
	require.True(t, apierr.IsCode(err, apierr.CodeValidation))
}

func TestGenerateStudentModePresence(t *testing.T) {
	ledger := map[string][]string{
		"2024-03-01": {"S1", "S2"},
		"2024-03-02": {"S2"},
	}
	e := newTestEngine(ledger, []string{"S1", "S2"})

	res, err := e.Generate(context.Background(), Params{TermID: int64p(1), StudentID: "S1"})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"2024-03-01": {"S1"}}, res.Data)

	res, err = e.Generate(context.Background(), Params{TermID: int64p(1), StudentID: "S1", Absent: true})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"2024-03-02": {}}, res.Data)
}

func TestGenerateStudentWithoutTermSkipsEnrollmentCheck(t *testing.T) {
	// Without a term there is no enrollment universe; the query degrades to
	// "did this student attend" on purpose.
	ledger := map[string][]string{"2024-03-01": {"S9"}}
	e := newTestEngine(ledger, nil)

	res, err := e.Generate(context.Background(), Params{StudentID: "S9"})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"2024-03-01": {"S9"}}, res.Data)
}

func TestGenerateEmailDispatchesRenderedReport(t *testing.T) {
	ledger := map[string][]string{"2024-03-01": {"S1"}}
	dir := &fakeDirectory{
		details: map[string]*roster.StudentDetail{
			"S1": {StudentID: "S1", FirstName: "Ada", LastName: "Lovelace", LeaderFirstName: "No Leader"},
		},
		term: &roster.Term{ID: 1, ShortName: "SP24"},
	}
	dispatcher := &fakeDispatcher{}
	e := NewEngine(&fakeLedger{data: ledger}, &fakeEnrollment{ids: []string{"S1"}}, dir, dispatcher)

	res, err := e.Generate(context.Background(), Params{TermID: int64p(1), Absent: true, Format: "email"})
	require.NoError(t, err)
	require.Equal(t, "success", res.Status)
	require.Equal(t, "Email sent successfully.", res.Message)
	require.True(t, dispatcher.absent)
	require.Contains(t, dispatcher.html, "Absent Report")
	require.Contains(t, dispatcher.html, "Term: SP24")
}

func TestGenerateEmailDispatchErrorPropagates(t *testing.T) {
	dispatcher := &fakeDispatcher{err: apierr.Validation([]string{"No recipients found."})}
	e := NewEngine(
		&fakeLedger{data: map[string][]string{"2024-03-01": {"S1"}}},
		&fakeEnrollment{ids: []string{"S1"}},
		&fakeDirectory{details: map[string]*roster.StudentDetail{}, term: &roster.Term{ID: 1, ShortName: "SP24"}},
		dispatcher,
	)

	_, err := e.Generate(context.Background(), Params{TermID: int64p(1), Format: "email"})
	require.Error(t, err)
	require.Equal(t, "No recipients found.", err.Error())
	require.True(t, apierr.IsCode(err, apierr.CodeValidation))
}

func TestGenerateEmailWithoutDispatcher(t *testing.T) {
	e := newTestEngine(map[string][]string{"2024-03-01": {"S1"}}, []string{"S1"})

	_, err := e.Generate(context.Background(), Params{TermID: int64p(1), Format: "email"})
	require.Error(t, err)
	require.True(t, apierr.IsCode(err, apierr.CodeInternal))
}

func TestGenerateHTMLTermLookupErrorPropagates(t *testing.T) {
	dir := &fakeDirectory{details: map[string]*roster.StudentDetail{}, termErr: errors.New("terms table gone")}
	e := NewEngine(&fakeLedger{data: map[string][]string{"2024-03-01": {"S1"}}}, &fakeEnrollment{ids: []string{"S1"}}, dir, nil)

	_, err := e.Generate(context.Background(), Params{TermID: int64p(1), Format: "html"})
	require.Error(t, err)
	require.True(t, apierr.IsCode(err, apierr.CodeInternal))
	require.Contains(t, err.Error(), "terms table gone")
}

func TestGenerateHTMLUsesPlaceholderForUnknownStudents(t *testing.T) {
	ledger := map[string][]string{"2024-03-01": {"S1", "S2"}}
	dir := &fakeDirectory{
		details: map[string]*roster.StudentDetail{
			"S1": {StudentID: "S1", FirstName: "Ada", LastName: "Lovelace", LeaderFirstName: "No Leader"},
		},
		term: &roster.Term{ID: 1, ShortName: "SP24"},
	}
	e := NewEngine(&fakeLedger{data: ledger}, &fakeEnrollment{ids: []string{"S1", "S2"}}, dir, nil)

	res, err := e.Generate(context.Background(), Params{TermID: int64p(1), Format: "html"})
	require.NoError(t, err)
	require.Contains(t, res.HTML, "Attendance Report")
	require.Contains(t, res.HTML, "Term: SP24")
	require.Contains(t, res.HTML, "03-01-2024")
	require.Contains(t, res.HTML, "Ada")
	require.Contains(t, res.HTML, "No Leader")
	require.Contains(t, res.HTML, "Student details not found")
}

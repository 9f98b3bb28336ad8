package dispatch

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromRequestIsCaseInsensitive(t *testing.T) {
	req := httptest.NewRequest("GET", "/api?Action=Report&TERM_ID=3&date=", nil)
	p := FromRequest(req)

	require.Equal(t, "Report", p.Get("action"))
	require.Equal(t, "3", p.Get("Term_Id"))
	require.Equal(t, "", p.Get("date"))
}

func TestFromRequestReadsFormBody(t *testing.T) {
	body := url.Values{"student_id": {"S1"}, "course_id": {"C1"}}
	req := httptest.NewRequest("POST", "/api", strings.NewReader(body.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := FromRequest(req)
	require.Equal(t, "S1", p.Get("student_id"))
	require.Equal(t, "C1", p.Get("course_id"))
}

func TestMissing(t *testing.T) {
	req := httptest.NewRequest("GET", "/api?student_id=S1", nil)
	p := FromRequest(req)

	require.Nil(t, p.Missing("student_id"))
	require.Equal(t, []string{"course_id", "term_id"}, p.Missing("course_id", "term_id"))
}

func TestBool(t *testing.T) {
	req := httptest.NewRequest("GET", "/api?a=true&b=1&c=false&d=weird", nil)
	p := FromRequest(req)

	require.True(t, p.Bool("a"))
	require.True(t, p.Bool("b"))
	require.False(t, p.Bool("c"))
	require.False(t, p.Bool("d"))
	require.False(t, p.Bool("absent"))
}

func TestInt64(t *testing.T) {
	req := httptest.NewRequest("GET", "/api?term_id=42&bad=x", nil)
	p := FromRequest(req)

	got, err := p.Int64("term_id")
	require.NoError(t, err)
	require.Equal(t, int64(42), *got)

	got, err = p.Int64("missing")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = p.Int64("bad")
	require.Error(t, err)
}

func TestNormalizeDate(t *testing.T) {
	got, err := NormalizeDate("03-01-2024")
	require.NoError(t, err)
	require.Equal(t, "2024-03-01", got)

	_, err = NormalizeDate("2024-03-01")
	require.Error(t, err)
	_, err = NormalizeDate("13-41-2024")
	require.Error(t, err)
}

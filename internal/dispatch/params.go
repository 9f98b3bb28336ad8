package dispatch

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"mentortrack/internal/apierr"
)

// Params is a case-insensitive view over a request's query and form
// parameters. Empty values count as absent.
type Params map[string]string

// FromRequest collects parameters from the query string and any form body.
func FromRequest(r *http.Request) Params {
	_ = r.ParseForm()
	p := make(Params, len(r.Form))
	for key, vals := range r.Form {
		k := strings.ToLower(key)
		if _, ok := p[k]; ok {
			continue
		}
		for _, v := range vals {
			if v != "" {
				p[k] = v
				break
			}
		}
	}
	return p
}

// Get returns the parameter value, or "" when absent.
func (p Params) Get(name string) string {
	return p[strings.ToLower(name)]
}

// Missing returns the names of required parameters that are absent.
func (p Params) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if p.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Bool interprets truthy parameter values ("1", "true", "on", "yes").
func (p Params) Bool(name string) bool {
	switch strings.ToLower(p.Get(name)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Int64 parses an optional numeric parameter. Absent yields (nil, nil).
func (p Params) Int64(name string) (*int64, error) {
	val := p.Get(name)
	if val == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, apierr.Invalid("%s must be numeric", name)
	}
	return &n, nil
}

// Optional returns a pointer to the value, or nil when absent. Used for
// nullable insert columns.
func (p Params) Optional(name string) *string {
	val := p.Get(name)
	if val == "" {
		return nil
	}
	return &val
}

// NormalizeDate converts the boundary MM-DD-YYYY form to the internal
// YYYY-MM-DD form.
func NormalizeDate(s string) (string, error) {
	t, err := time.Parse("01-02-2006", s)
	if err != nil {
		return "", apierr.Invalid("Invalid date format. Use MM-DD-YYYY.")
	}
	return t.Format("2006-01-02"), nil
}

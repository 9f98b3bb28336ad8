package term

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mentortrack/internal/roster"
)

type fakeTermStore struct {
	current *roster.Term
	today   string
}

func (f *fakeTermStore) CurrentTerm(ctx context.Context, today string) (*roster.Term, error) {
	f.today = today
	return f.current, nil
}

func (f *fakeTermStore) TermByShortName(ctx context.Context, shortName string) (*roster.Term, error) {
	if f.current != nil && f.current.ShortName == shortName {
		return f.current, nil
	}
	return nil, nil
}

func TestCurrentResolvesByDateWindow(t *testing.T) {
	store := &fakeTermStore{current: &roster.Term{ID: 3, ShortName: "SP24"}}
	r := NewResolver(store, nil, time.Minute, time.UTC)
	r.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	got, err := r.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "SP24", got.ShortName)
	require.Equal(t, "2024-03-01", store.today)
}

func TestCurrentNoTermWindow(t *testing.T) {
	r := NewResolver(&fakeTermStore{}, nil, time.Minute, time.UTC)
	got, err := r.Current(context.Background())
	require.NoError(t, err)
	require.Nil(t, got)
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDBHealthyNilSafe(t *testing.T) {
	var d *DB
	require.False(t, d.Healthy(context.Background()))
	require.False(t, (&DB{}).Healthy(context.Background()))
	require.NoError(t, d.Close())
}

package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteMigrateAndCount(t *testing.T) {
	ctx := context.Background()
	d, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(d.Close)

	require.NoError(t, d.HealthCheck(ctx))

	_, err = d.RosterCount(ctx)
	require.Error(t, err, "table does not exist before migrating")

	require.NoError(t, d.Migrate(ctx))
	require.NoError(t, d.Migrate(ctx), "migrating twice is a no-op")

	n, err := d.RosterCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = d.SQL.ExecContext(ctx,
		`INSERT INTO rosters (owner_id, name, slots, created_at, updated_at) VALUES ('ash', 'Kanto', '[]', 1, 1)`)
	require.NoError(t, err)
	_, err = d.SQL.ExecContext(ctx,
		`INSERT INTO rosters (owner_id, name, slots, created_at, updated_at) VALUES ('ash', 'KANTO', '[]', 2, 2)`)
	require.Error(t, err, "names are unique per owner regardless of case")

	n, err = d.RosterCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, d.Rollback(ctx))
	_, err = d.RosterCount(ctx)
	assert.Error(t, err)
}

package database_test

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDatabaseExists(t *testing.T) {
	pg := testutil.StartPostgres(t)
	ctx := context.Background()

	created, err := database.EnsureDatabaseExists(ctx, pg.DB, "inventory_bootstrap")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = database.EnsureDatabaseExists(ctx, pg.DB, "inventory_bootstrap")
	require.NoError(t, err)
	assert.False(t, created, "second call must be a no-op")

	// The existing container database is reported as present.
	created, err = database.EnsureDatabaseExists(ctx, pg.DB, "testdb")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = database.EnsureDatabaseExists(ctx, pg.DB, "")
	assert.ErrorIs(t, err, database.ErrValidation)

	u, err := url.Parse(pg.DSN)
	require.NoError(t, err)
	u.Path = "/inventory_bootstrap"
	db, err := database.Open(u.String())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.EnsureTablesExist(ctx, db))
	ok, err := database.TablesExist(ctx, db)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnsureTablesExistConcurrently(t *testing.T) {
	pg := testutil.StartPostgres(t)
	ctx := context.Background()

	ok, err := database.TablesExist(ctx, pg.DB)
	require.NoError(t, err)
	assert.False(t, ok)

	const instances = 8
	var wg sync.WaitGroup
	errs := make(chan error, instances)

	for i := 0; i < instances; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- database.EnsureTablesExist(ctx, pg.DB)
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	ok, err = database.TablesExist(ctx, pg.DB)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, database.DropTables(ctx, pg.DB))
	ok, err = database.TablesExist(ctx, pg.DB)
	require.NoError(t, err)
	assert.False(t, ok)
}

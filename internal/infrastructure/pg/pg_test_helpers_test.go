package pg_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"xrp-monitor/internal/domain"
	"xrp-monitor/internal/infrastructure/pg"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// database connects to DATABASE_URL when set, otherwise starts a container
// when TESTCONTAINERS is set, otherwise skips.
func database(t *testing.T) *pg.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		if os.Getenv("TESTCONTAINERS") == "" {
			t.Skip("set DATABASE_URL or TESTCONTAINERS=1 to run PG tests")
		}
		container, err := postgres.RunContainer(ctx,
			postgres.WithDatabase("xrp"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })
		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := pg.Connect(ctx, dsn)
	if err != nil {
		t.Skip("pg not available: ", err)
	}
	t.Cleanup(db.Close)
	if err := db.Ping(ctx); err != nil {
		t.Skip("pg not reachable: ", err)
	}
	require.NoError(t, pg.RunMigrations(ctx, db))
	return db
}

// uniqueChannel keeps tests sharing one database isolated.
func uniqueChannel() domain.Channel {
	return domain.Channel("T" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]) + "/BRL")
}

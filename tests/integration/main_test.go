//go:build integration

package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/mengedapp/menged/internal/testutil"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	migrator, err := migrate.New(
		"file://../../migrations",
		pgContainer.ConnectionString,
	)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("run migrations: %v", err)
	}

	testDB, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("create test db pool: %v", err)
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

// createUser inserts a user with an optional linked telegram chat.
func createUser(t *testing.T, firstName string, chatID *int64) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := testDB.QueryRow(context.Background(),
		`INSERT INTO users (first_name, telegram_chat_id) VALUES ($1, $2) RETURNING id`,
		firstName, chatID,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// cleanupOutbox removes all queue and feed rows between tests.
func cleanupOutbox(t *testing.T) {
	t.Helper()

	_, err := testDB.Exec(context.Background(), `TRUNCATE outbox_tasks, notifications`)
	require.NoError(t, err)
}

func int64Ptr(v int64) *int64 { return &v }

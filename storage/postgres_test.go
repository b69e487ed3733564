package storage_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/blusaccount/maexchen-online/migrations"
	"github.com/blusaccount/maexchen-online/storage"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var pgRepo *storage.PostgresRepo

func TestMain(m *testing.M) {
	ctx := context.Background()

	postgresContainer, err := startPostgres(ctx)
	if err != nil {
		// no docker: the SQLite tests still run, the Postgres ones skip
		fmt.Fprintln(os.Stderr, "postgres container unavailable:", err)
		os.Exit(m.Run())
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	if err := migrations.Migrate(connString); err != nil {
		panic(err)
	}

	pgRepo, err = storage.NewPostgresRepo(ctx, connString)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	pgRepo.Close()
	postgresContainer.Terminate(ctx)
	os.Exit(code)
}

// startPostgres reports a missing docker daemon as an error. testcontainers
// panics when it cannot resolve a docker host at all.
func startPostgres(ctx context.Context) (container *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			container, err = nil, fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return nil, err
	}
	defer provider.Close()
	if err := provider.Health(ctx); err != nil {
		return nil, err
	}

	return postgres.Run(ctx,
		"postgres:16-alpine3.22",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
}

func requirePostgres(t *testing.T) *storage.PostgresRepo {
	t.Helper()
	if pgRepo == nil {
		t.Skip("postgres container unavailable")
	}
	return pgRepo
}

func TestPostgresRepo(t *testing.T) {
	repo := requirePostgres(t)
	t.Run("Ledger", func(t *testing.T) { testLedger(t, repo) })
	t.Run("Documents", func(t *testing.T) { testDocuments(t, repo) })
	t.Run("Characters", func(t *testing.T) { testCharacters(t, repo) })
}

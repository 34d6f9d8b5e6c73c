// Package test provides database helpers for SitePilot integration tests.
package test

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/golangmigrator"
)

// TestDB is an isolated, fully migrated database for one test.
type TestDB struct {
	DB *sql.DB
}

// NewTestDB clones a migrated template database for the test. Cloning is
// much faster than running migrations per test. Skips when no Postgres is
// reachable via DATABASE_URL.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	migrationsPath := findMigrations(t)

	parsedURL, err := url.Parse(databaseURL)
	if err != nil {
		t.Fatalf("failed to parse DATABASE_URL: %v", err)
	}

	host := parsedURL.Hostname()
	port := parsedURL.Port()
	if port == "" {
		port = "5432"
	}

	user := parsedURL.User.Username()
	password, _ := parsedURL.User.Password()

	database := strings.TrimPrefix(parsedURL.Path, "/")
	if database == "" {
		database = "postgres"
	}

	db := pgtestdb.New(t, pgtestdb.Config{
		DriverName: "pgx",
		Host:       host,
		Port:       port,
		User:       user,
		Password:   password,
		Database:   database,
		Options:    parsedURL.RawQuery,
	}, golangmigrator.New(migrationsPath))

	return &TestDB{DB: db}
}

// findMigrations walks up from the working directory to the migrations dir.
func findMigrations(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	currentPath := wd
	for {
		testPath := filepath.Join(currentPath, "internal", "database", "migrations")
		if _, err := os.Stat(testPath); err == nil {
			return testPath
		}
		parent := filepath.Dir(currentPath)
		if parent == currentPath {
			t.Fatalf("could not find migrations directory")
		}
		currentPath = parent
	}
}

// Close closes the database connection.
func (tdb *TestDB) Close() error {
	if tdb.DB != nil {
		return tdb.DB.Close()
	}
	return nil
}

// Exec executes raw SQL for test setup.
func (tdb *TestDB) Exec(ctx context.Context, query string, args ...interface{}) error {
	_, err := tdb.DB.ExecContext(ctx, query, args...)
	return err
}

// QueryRow executes a query returning a single row.
func (tdb *TestDB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return tdb.DB.QueryRowContext(ctx, query, args...)
}

// SeedTenant inserts a tenant and returns its id.
func (tdb *TestDB) SeedTenant(t *testing.T, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := tdb.DB.QueryRow(`
		INSERT INTO tenant (name, owner_id) VALUES ($1, 'test-owner')
		RETURNING tenant_id
	`, name).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}
	return id
}

// SeedSite inserts a site with one home page and returns the site id.
func (tdb *TestDB) SeedSite(t *testing.T, tenantID uuid.UUID, slug string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := tdb.DB.QueryRow(`
		INSERT INTO site (tenant_id, slug, name) VALUES ($1, $2, $2)
		RETURNING site_id
	`, tenantID, slug).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed site: %v", err)
	}
	if _, err := tdb.DB.Exec(`
		INSERT INTO page (site_id, slug, title, layout)
		VALUES ($1, '/', 'Home', '{"blocks":[]}')
	`, id); err != nil {
		t.Fatalf("failed to seed page: %v", err)
	}
	return id
}

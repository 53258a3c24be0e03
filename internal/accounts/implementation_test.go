// internal/accounts/implementation_test.go
package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"ikirezi/pkg/eventstore"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to a PostgreSQL database for testing and skips the
// test when no database is reachable.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	pgUser := getenvDefault("PGUSER", "user")
	pgPassword := getenvDefault("PGPASSWORD", "password")
	pgHost := getenvDefault("PGHOST", "localhost")
	pgPort := getenvDefault("PGPORT", "5432")
	pgDB := getenvDefault("PGDATABASE", "testdb")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			aggregate_id UUID NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data JSONB NOT NULL,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (aggregate_id, version)
		);
		CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			shipping_address TEXT,
			shipping_city TEXT,
			shipping_country TEXT,
			shipping_postal_code TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS credentials (
			profile_id UUID PRIMARY KEY REFERENCES profiles(id),
			password_hash TEXT NOT NULL,
			salt TEXT NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupAccountsService(t *testing.T) Service {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })
	tokens := NewTokenIssuer([]byte("test-secret"), time.Hour)
	return NewService(eventstore.NewEventStore(db), db, tokens)
}

// uniqueEmail avoids collisions with rows left behind by earlier runs against
// a shared database.
func uniqueEmail() string {
	return fmt.Sprintf("reader-%s@example.com", uuid.NewString()[:8])
}

func TestRegisterAndLogin(t *testing.T) {
	svc := setupAccountsService(t)
	ctx := context.Background()
	email := uniqueEmail()

	profile, err := svc.Register(ctx, email, "Ineza Keza", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, email, profile.Email)
	assert.False(t, profile.IsAdmin)

	got, token, err := svc.Login(ctx, email, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, got.ID)
	assert.NotEmpty(t, token)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc := setupAccountsService(t)
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Register(ctx, "  "+email+"  ", "Ineza Keza", "correct horse")
	require.NoError(t, err)

	// Login with the canonical form works.
	_, _, err = svc.Login(ctx, email, "correct horse")
	assert.NoError(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := setupAccountsService(t)
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Register(ctx, email, "Ineza Keza", "correct horse")
	require.NoError(t, err)

	_, err = svc.Register(ctx, email, "Someone Else", "other password")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := setupAccountsService(t)
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Register(ctx, email, "Ineza Keza", "correct horse")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, email, "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown accounts produce the same error, not a distinguishable one.
	_, _, err = svc.Login(ctx, uniqueEmail(), "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	svc := setupAccountsService(t)
	ctx := context.Background()
	email := uniqueEmail()

	profile, err := svc.Register(ctx, email, "Ineza Keza", "correct horse")
	require.NoError(t, err)

	err = svc.UpdateProfile(ctx, profile.ID, ProfileUpdate{
		FullName:           "Ineza K. Uwase",
		ShippingAddress:    "KG 11 Ave",
		ShippingCity:       "Kigali",
		ShippingCountry:    "Rwanda",
		ShippingPostalCode: "00000",
	})
	require.NoError(t, err)

	got, err := svc.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ineza K. Uwase", got.FullName)
	assert.Equal(t, "Kigali", got.ShippingCity)
}

func TestUpdateProfileUnknownID(t *testing.T) {
	svc := setupAccountsService(t)

	err := svc.UpdateProfile(context.Background(), uuid.New(), ProfileUpdate{FullName: "Nobody"})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestGetProfileUnknownID(t *testing.T) {
	svc := setupAccountsService(t)

	_, err := svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

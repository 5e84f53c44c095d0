package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/config"
	"github.com/chronoplan-io/chronoplan/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")

	store, err := Init(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *Store, email string) *models.User {
	t.Helper()

	hash := "$2a$10$test.hash.placeholder.value.for.tests.only"
	user := &models.User{
		Email:    email,
		Name:     "Test User",
		Password: &hash,
	}
	require.NoError(t, store.CreateUser(user))
	return user
}

func TestInitRunsMigrations(t *testing.T) {
	store := newTestStore(t)

	// Running a second time against the same file must be a no-op.
	require.NoError(t, RunMigrations(store.db, store.dbType))

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	require.Greater(t, count, 0)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	createTestUser(t, store, "dup@example.com")

	user := &models.User{Email: "dup@example.com", Name: "Second"}
	err := store.CreateUser(user)
	require.Error(t, err)
	require.Contains(t, err.Error(), "UNIQUE constraint")
}

func TestUserEmailExists(t *testing.T) {
	store := newTestStore(t)
	createTestUser(t, store, "present@example.com")

	exists, err := store.UserEmailExists("present@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.UserEmailExists("absent@example.com")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestUpdateProfile(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "profile@example.com")

	require.NoError(t, store.UpdateProfile(user.ID, "New Name", "Acme"))

	got, err := store.GetUserByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, "New Name", got.Name)
	require.Equal(t, "Acme", got.Company)

	err = store.UpdateProfile("no-such-id", "X", "Y")
	require.Error(t, err)
}

func futureExpiry() time.Time {
	return time.Now().Add(time.Hour)
}

func pastExpiry() time.Time {
	return time.Now().Add(-time.Minute)
}

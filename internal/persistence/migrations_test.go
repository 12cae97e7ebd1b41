package persistence

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	got, err := migrateURL("postgres://card:secret@db:5432/cards?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://card:secret@db:5432/cards?sslmode=disable", got)

	got, err = migrateURL("postgresql://db/cards")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://db/cards", got)

	_, err = migrateURL("host=db user=card dbname=cards")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestUsersMigrationDeclaresUniqueIndexes(t *testing.T) {
	body, err := fs.ReadFile(migrationFiles, "migrations/000002_create_users.up.sql")
	require.NoError(t, err)
	for _, idx := range []string{"users_card_number_key", "users_email_lower_key", "users_nfc_id_key"} {
		assert.Contains(t, string(body), idx)
	}
}

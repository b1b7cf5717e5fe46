package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DIARY_TIMEZONE", "Asia/Kolkata")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("MAIL_SEND_ENABLED", "not-a-bool")
	t.Setenv("DIARY_ADMIN_EMAILS", " Admin.Diary@example.com , ,other@example.com")

	c := Load()
	assert.Equal(t, "postgres", c.StoreDriver)
	assert.Equal(t, 5*time.Minute, c.AccessTTL)
	assert.False(t, c.MailSendEnabled, "invalid booleans fall back to the default")
	assert.Equal(t, []string{"admin.diary@example.com", "other@example.com"}, c.Admins())

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLocation_Local(t *testing.T) {
	c := &Config{Timezone: "Local"}
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	c.Timezone = "Mars/Olympus"
	_, err = c.Location()
	assert.Error(t, err)
}

func TestParseCredentials(t *testing.T) {
	dir, err := ParseCredentials([]byte(`{
		"Kabilan": {"password": "Kabilan_M123", "email": "kabilan.diary@example.com"},
		"Admin":   {"password": "Admin123", "email": "admin.diary@example.com"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 2, dir.Len())
	c, ok := dir.Verify("Admin", "Admin123")
	require.True(t, ok)
	assert.Equal(t, "admin.diary@example.com", c.Email)

	_, err = ParseCredentials([]byte(`{"Kabilan": {"password": "x"}}`))
	assert.Error(t, err, "an entry without email is rejected")

	_, err = ParseCredentials([]byte(`[]`))
	assert.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	_, err := LoadCredentials(&Config{})
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = LoadCredentials(&Config{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Afrin_Tabassum": {"password": "Harry James Potter", "email": "afrin.diary@example.com"}}`), 0o600))
	dir, err := LoadCredentials(&Config{CredentialsFile: path, CredentialsJSON: `{}`})
	require.NoError(t, err)
	_, ok := dir.Lookup("Afrin_Tabassum")
	assert.True(t, ok, "the file wins over the inline document")

	dir, err = LoadCredentials(&Config{CredentialsJSON: `{"Admin": {"password": "Admin123", "email": "admin.diary@example.com"}}`})
	require.NoError(t, err)
	assert.Equal(t, 1, dir.Len())
}

func TestExampleCredentialsFileIsValid(t *testing.T) {
	dir, err := LoadCredentials(&Config{CredentialsFile: "credentials.example.json"})
	require.NoError(t, err)
	assert.Equal(t, 3, dir.Len())
}

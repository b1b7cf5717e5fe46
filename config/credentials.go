package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/oksasatya/go-ddd-diary/internal/domain/credential"
	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

var ErrNoCredentials = errors.New("no credentials configured: set DIARY_CREDENTIALS_FILE or DIARY_CREDENTIALS")

type credentialEntry struct {
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoadCredentials reads the allow-list from CredentialsFile, or from
// CredentialsJSON when no file is set, and builds the directory.
func LoadCredentials(c *Config) (*credential.Directory, error) {
	var raw []byte
	switch {
	case c.CredentialsFile != "":
		b, err := os.ReadFile(c.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		raw = b
	case c.CredentialsJSON != "":
		raw = []byte(c.CredentialsJSON)
	default:
		return nil, ErrNoCredentials
	}
	return ParseCredentials(raw)
}

// ParseCredentials decodes {"username": {"password": "...", "email": "..."}}.
func ParseCredentials(raw []byte) (*credential.Directory, error) {
	var doc map[string]credentialEntry
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	creds := make([]entity.Credential, 0, len(doc))
	for username, e := range doc {
		creds = append(creds, entity.Credential{Username: username, Password: e.Password, Email: e.Email})
	}
	return credential.NewDirectory(creds)
}

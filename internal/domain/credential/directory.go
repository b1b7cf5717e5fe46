// Package credential holds the fixed allow-list of diary logins.
package credential

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

var ErrEmptyDirectory = errors.New("credential directory is empty")

// Directory maps usernames to credentials. It is built once at startup and
// never mutated, so it is safe for concurrent use.
type Directory struct {
	byUsername map[string]entity.Credential
}

// NewDirectory validates the given credentials and returns an immutable directory.
// Usernames are matched exactly (case-sensitive), like the login form sends them.
func NewDirectory(creds []entity.Credential) (*Directory, error) {
	if len(creds) == 0 {
		return nil, ErrEmptyDirectory
	}
	d := &Directory{byUsername: make(map[string]entity.Credential, len(creds))}
	emails := make(map[string]string, len(creds))
	for _, c := range creds {
		c.Email = strings.ToLower(strings.TrimSpace(c.Email))
		switch {
		case strings.TrimSpace(c.Username) == "":
			return nil, errors.New("credential with empty username")
		case c.Password == "":
			return nil, fmt.Errorf("credential %q: empty password", c.Username)
		case !strings.Contains(c.Email, "@"):
			return nil, fmt.Errorf("credential %q: invalid email %q", c.Username, c.Email)
		}
		if _, dup := d.byUsername[c.Username]; dup {
			return nil, fmt.Errorf("duplicate username %q", c.Username)
		}
		if other, dup := emails[c.Email]; dup {
			return nil, fmt.Errorf("credentials %q and %q share email %q", other, c.Username, c.Email)
		}
		emails[c.Email] = c.Username
		d.byUsername[c.Username] = c
	}
	return d, nil
}

// Lookup returns the credential for username.
func (d *Directory) Lookup(username string) (entity.Credential, bool) {
	c, ok := d.byUsername[username]
	return c, ok
}

// Verify looks up username and checks password against it. Stored passwords
// that look like bcrypt hashes are compared with bcrypt.
func (d *Directory) Verify(username, password string) (entity.Credential, bool) {
	c, ok := d.Lookup(username)
	if !ok {
		return entity.Credential{}, false
	}
	if helpers.IsBcryptHash(c.Password) {
		if !helpers.CompareHashAndPassword(c.Password, password) {
			return entity.Credential{}, false
		}
		return c, true
	}
	if subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) != 1 {
		return entity.Credential{}, false
	}
	return c, true
}

// All returns every credential sorted by username.
func (d *Directory) All() []entity.Credential {
	out := make([]entity.Credential, 0, len(d.byUsername))
	for _, c := range d.byUsername {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (d *Directory) Len() int { return len(d.byUsername) }

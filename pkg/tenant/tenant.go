// Package tenant maps portal users to the Client whose rows they may read.
package tenant

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Client holds the key material for one tenant
type Client struct {
	Prefix     string `yaml:"prefix"`
	LegacySeed string `yaml:"legacy_seed,omitempty"`
}

// Directory is the server side user to client mapping
type Directory struct {
	Users   map[string]string `yaml:"users"`
	Admins  []string          `yaml:"admins"`
	Clients map[string]Client `yaml:"clients"`

	admins map[string]struct{}
}

func normalise(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Parse decodes a directory from YAML (or JSON)
func Parse(b []byte) (*Directory, error) {

	d := &Directory{}
	err := yaml.Unmarshal(b, d)
	if err != nil {
		return nil, fmt.Errorf("could not decode tenant directory: %w", err)
	}

	users := make(map[string]string, len(d.Users))
	for email, client := range d.Users {
		users[normalise(email)] = strings.TrimSpace(client)
	}
	d.Users = users

	d.admins = make(map[string]struct{}, len(d.Admins))
	for _, a := range d.Admins {
		d.admins[normalise(a)] = struct{}{}
	}

	if d.Clients == nil {
		d.Clients = map[string]Client{}
	}
	for name, c := range d.Clients {
		if c.Prefix == "" {
			return nil, fmt.Errorf("client %q has no key prefix", name)
		}
	}

	return d, nil
}

// Load reads a directory from inline config or a file path, inline wins
func Load(inline, path string) (*Directory, error) {

	if inline != "" {
		return Parse([]byte(inline))
	}
	if path == "" {
		return nil, fmt.Errorf("no tenant directory configured")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read tenant directory: %w", err)
	}
	return Parse(b)
}

// ClientFor returns the client mapped to a user, or an empty string
func (d *Directory) ClientFor(email string) string {
	if d == nil {
		return ""
	}
	return d.Users[normalise(email)]
}

// IsAdmin reports whether a user may view any client
func (d *Directory) IsAdmin(email string) bool {
	if d == nil {
		return false
	}
	_, ok := d.admins[normalise(email)]
	return ok
}

// Names lists the configured clients
func (d *Directory) Names() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Clients))
	for name := range d.Clients {
		out = append(out, name)
	}
	return out
}

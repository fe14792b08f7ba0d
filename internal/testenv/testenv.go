// Package testenv builds a portal.Env around a fake Notion for handler tests.
package testenv

import (
	"testing"
	"time"

	"github.com/sayshey/clientportal/internal/testutil"
	"github.com/sayshey/clientportal/pkg/auth"
	"github.com/sayshey/clientportal/pkg/config"
	"github.com/sayshey/clientportal/pkg/enrich"
	"github.com/sayshey/clientportal/pkg/portal"
	"github.com/sayshey/clientportal/pkg/tenant"
)

// Secret is the AUTH_SECRET used by test environments
const Secret = "test-secret"

// DatabaseID is the database the fake serves
const DatabaseID = "db-test"

// Now is the fixed clock of test environments
var Now = time.Date(2025, 3, 1, 12, 7, 0, 0, time.UTC)

// Directory is the tenant directory used by test environments
const Directory = `
users:
  ed@example.com: King Ed
  linden@example.com: Linden Jay
admins:
  - boss@example.com
clients:
  King Ed:
    prefix: ke
    legacy_seed: king-ed-2025
  Linden Jay:
    prefix: lj
    legacy_seed: client-a-2024
  Tiggs:
    prefix: nf
`

// New returns a ready Env and the fake behind it
func New(t *testing.T) (*portal.Env, *testutil.FakeNotion) {
	t.Helper()

	fake := testutil.NewFakeNotion(t)

	dir, err := tenant.Parse([]byte(Directory))
	if err != nil {
		t.Fatalf("could not parse directory: %v", err)
	}

	svc := fake.Service()
	env := &portal.Env{
		Config: config.Config{
			NotionToken: testutil.Token,
			DatabaseID:  DatabaseID,
			AuthSecret:  Secret,
			PageSize:    50,
			MaxPages:    10,
		},
		Notion:    svc,
		Directory: dir,
		Keyring:   auth.NewKeyring(Secret, dir),
		Enricher:  enrich.New(svc, enrich.WithThrottle(0, 0)),
		Now:       func() time.Time { return Now },
	}
	return env, fake
}

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sayshey/clientportal/pkg/tenant"
)

const (
	// MaxKeyAge is how old a secure key timestamp may be
	MaxKeyAge = time.Hour
	// MaxKeySkew is how far in the future a secure key timestamp may be
	MaxKeySkew = 5 * time.Minute
)

// Grant is the outcome of a secure key check
type Grant struct {
	OK            bool
	Admin         bool
	ClientFromKey string
}

// Keyring resolves secure keys to clients
type Keyring struct {
	secret string
	dir    *tenant.Directory
	keys   map[string]string
}

// NewKeyring builds the derived and legacy keys for every configured client
func NewKeyring(secret string, dir *tenant.Directory) *Keyring {

	k := &Keyring{secret: secret, dir: dir, keys: map[string]string{}}
	if dir == nil {
		return k
	}

	for name, c := range dir.Clients {
		if secret != "" {
			k.keys[DerivedKey(secret, c.Prefix, name)] = name
		}
		if c.LegacySeed != "" {
			k.keys[LegacyKey(c.Prefix, c.LegacySeed)] = name
		}
	}
	return k
}

// DerivedKey is the per-client key minted from the shared secret
func DerivedKey(secret, prefix, client string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("client:" + client))
	return prefix + "-" + hex.EncodeToString(mac.Sum(nil))[:32]
}

// LegacyKey is the static key older portal pages still embed
func LegacyKey(prefix, seed string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(seed))
	var b strings.Builder
	for _, r := range enc {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return prefix + "-" + b.String()
}

// ClientForKey returns the client a key belongs to
func (k *Keyring) ClientForKey(key string) string {
	if key == "" {
		return ""
	}
	for candidate, name := range k.keys {
		if hmac.Equal([]byte(candidate), []byte(key)) {
			return name
		}
	}
	return ""
}

func (k *Keyring) keyMatches(key, client string) bool {
	return client != "" && k.ClientForKey(key) == client
}

// leadingInt matches the integer a timestamp starts with, so "1740830820.5" reads as 1740830820
var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// FreshTimestamp checks a unix seconds timestamp is inside the replay window
func FreshTimestamp(ts string, now time.Time) bool {
	sec, err := strconv.ParseInt(leadingInt.FindString(strings.TrimSpace(ts)), 10, 64)
	if err != nil {
		return false
	}
	drift := now.Unix() - sec
	return drift <= int64(MaxKeyAge/time.Second) && drift >= -int64(MaxKeySkew/time.Second)
}

// Verify checks a secure key for a user.
// Admins may present any known client key; everyone else only their own.
func (k *Keyring) Verify(email, key, timestamp string, now time.Time) Grant {

	if !FreshTimestamp(timestamp, now) {
		return Grant{}
	}

	owner := k.ClientForKey(key)

	if k.dir.IsAdmin(email) {
		return Grant{OK: owner != "", Admin: true, ClientFromKey: owner}
	}

	mapped := k.dir.ClientFor(email)
	if !k.keyMatches(key, mapped) {
		return Grant{}
	}
	return Grant{OK: true, ClientFromKey: mapped}
}

// Package auth verifies portal credentials and resolves which client a caller may read.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// HashWindow is the lifetime of a signed hash bucket
const HashWindow = 15 * time.Minute

func bucket(t time.Time) int64 {
	return t.UnixMilli() / HashWindow.Milliseconds()
}

// SignHash returns the hash a front-end page sends for a user in the bucket containing t
func SignHash(secret, userID, email string, t time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%d", userID, email, bucket(t))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHash checks a signed hash against the current and previous bucket
func VerifyHash(secret, userID, email, hash string, now time.Time) bool {

	if secret == "" || hash == "" {
		return false
	}

	for _, t := range []time.Time{now, now.Add(-HashWindow)} {
		if hmac.Equal([]byte(hash), []byte(SignHash(secret, userID, email, t))) {
			return true
		}
	}
	return false
}

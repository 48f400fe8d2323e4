package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SignedURLSigner mints and verifies download tokens. A token is
// base64url(JSON claims) + "." + base64url(HMAC-SHA256), so downloads
// need no server-side session state.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

type downloadClaims struct {
	JobID   string `json:"job"`
	FileKey string `json:"key"`
	Expires int64  `json:"exp"`
}

// NewSignedURLSigner builds a signer. A non-positive TTL falls back to
// 24 hours.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate signs a token granting access to one stored file.
func (s *SignedURLSigner) Generate(jobID, fileKey string) (string, time.Time, error) {
	if jobID == "" || fileKey == "" {
		return "", time.Time{}, fmt.Errorf("jobID and fileKey are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret is not configured")
	}

	expiresAt := time.Now().Add(s.ttl).Truncate(time.Second)
	raw, err := json.Marshal(downloadClaims{JobID: jobID, FileKey: fileKey, Expires: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode download claims: %w", err)
	}

	body := base64.RawURLEncoding.EncodeToString(raw)
	token := body + "." + s.sign(body)
	return token, expiresAt, nil
}

// Parse verifies the signature and, unless allowExpired is set, the
// expiry. It returns the job ID, file key, and expiry time.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", "", time.Time{}, fmt.Errorf("malformed download token")
	}
	if !hmac.Equal([]byte(s.sign(body)), []byte(sig)) {
		return "", "", time.Time{}, fmt.Errorf("download token signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode download token: %w", err)
	}
	var claims downloadClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode download claims: %w", err)
	}

	expiresAt := time.Unix(claims.Expires, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("download token expired")
	}
	return claims.JobID, claims.FileKey, expiresAt, nil
}

func (s *SignedURLSigner) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "tenant-a/job-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	jobID, fileKey, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "tenant-a/job-1.csv", fileKey)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "tenant-a/job-1.csv")
	require.NoError(t, err)

	body, sig, ok := strings.Cut(token, ".")
	require.True(t, ok)

	_, _, _, err = signer.Parse(body+"x."+sig, false)
	require.Error(t, err)

	other := NewSignedURLSigner("another-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLSignerExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", -time.Hour)
	// Negative TTL falls back to the 24h default, so force expiry by
	// signing with a tiny TTL instead.
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("job-1", "tenant-a/job-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	jobID, fileKey, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "tenant-a/job-1.pdf", fileKey)
}

package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("birth_north_20240506_070809.csv", "2024/05/birth_north_20240506_070809.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	name, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "birth_north_20240506_070809.csv", name)
	require.Equal(t, "2024/05/birth_north_20240506_070809.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerDottedNameKeepsTokenLayout(t *testing.T) {
	// File names carry extensions and paths carry slashes; neither may leak
	// into the dot-separated token segments.
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("all_2023.report.json", "2023/12/all_2023.report.json")
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 4)

	name, path, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "all_2023.report.json", name)
	require.Equal(t, "2023/12/all_2023.report.json", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("file.csv", "2024/01/file.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[2] = parts[2] + "x"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)

	other := NewSignedURLSigner("different-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("file.csv", "2024/01/file.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	name, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "file.csv", name)
	require.Equal(t, "2024/01/file.csv", path)
}

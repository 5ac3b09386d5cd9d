// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKeyPair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

func writePlaintext(t *testing.T, dir string, size int) string {
	t.Helper()
	path := filepath.Join(dir, "plain.bin")
	buf := make([]byte, size)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestSealOpen_RoundTripAES128GCM(t *testing.T) {
	dir := t.TempDir()
	priv := testKeyPair(t)
	plainPath := writePlaintext(t, dir, ChunkSize*3+17)

	cipherPath := filepath.Join(dir, "report.zip.enc")
	manifestPath := filepath.Join(dir, "encryption.json")
	require.NoError(t, Seal(plainPath, cipherPath, manifestPath, AlgorithmAES128GCM, &priv.PublicKey))

	outPath := filepath.Join(dir, "recovered.bin")
	require.NoError(t, Open(cipherPath, outPath, manifestPath, priv))

	want, err := os.ReadFile(plainPath)
	require.NoError(t, err)
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSealOpen_RoundTripChaCha20Poly1305(t *testing.T) {
	dir := t.TempDir()
	priv := testKeyPair(t)
	plainPath := writePlaintext(t, dir, ChunkSize-1)

	cipherPath := filepath.Join(dir, "report.zip.enc")
	manifestPath := filepath.Join(dir, "encryption.json")
	require.NoError(t, Seal(plainPath, cipherPath, manifestPath, AlgorithmChaCha20Poly1305, &priv.PublicKey))

	outPath := filepath.Join(dir, "recovered.bin")
	require.NoError(t, Open(cipherPath, outPath, manifestPath, priv))

	want, err := os.ReadFile(plainPath)
	require.NoError(t, err)
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSealOpen_EmptyPlaintextRoundTrips(t *testing.T) {
	dir := t.TempDir()
	priv := testKeyPair(t)
	plainPath := writePlaintext(t, dir, 0)

	cipherPath := filepath.Join(dir, "report.zip.enc")
	manifestPath := filepath.Join(dir, "encryption.json")
	require.NoError(t, Seal(plainPath, cipherPath, manifestPath, AlgorithmAES128GCM, &priv.PublicKey))

	outPath := filepath.Join(dir, "recovered.bin")
	require.NoError(t, Open(cipherPath, outPath, manifestPath, priv))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestOpen_TamperedChunkFailsAuthentication(t *testing.T) {
	dir := t.TempDir()
	priv := testKeyPair(t)
	plainPath := writePlaintext(t, dir, ChunkSize+100)

	cipherPath := filepath.Join(dir, "report.zip.enc")
	manifestPath := filepath.Join(dir, "encryption.json")
	require.NoError(t, Seal(plainPath, cipherPath, manifestPath, AlgorithmAES128GCM, &priv.PublicKey))

	data, err := os.ReadFile(cipherPath)
	require.NoError(t, err)
	// Flip the first ciphertext byte, just past the frame length prefix.
	data[frameLenSize] ^= 0xFF
	require.NoError(t, os.WriteFile(cipherPath, data, 0o644))

	outPath := filepath.Join(dir, "recovered.bin")
	err = Open(cipherPath, outPath, manifestPath, priv)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tampered")
}

func TestOpen_TruncatedStreamIsRejected(t *testing.T) {
	dir := t.TempDir()
	priv := testKeyPair(t)
	plainPath := writePlaintext(t, dir, ChunkSize*2)

	cipherPath := filepath.Join(dir, "report.zip.enc")
	manifestPath := filepath.Join(dir, "encryption.json")
	require.NoError(t, Seal(plainPath, cipherPath, manifestPath, AlgorithmAES128GCM, &priv.PublicKey))

	info, err := os.Stat(cipherPath)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(cipherPath, info.Size()/2))

	outPath := filepath.Join(dir, "recovered.bin")
	err = Open(cipherPath, outPath, manifestPath, priv)
	require.Error(t, err)
}

func TestOpen_WrongPrivateKeyFailsKeyUnwrap(t *testing.T) {
	dir := t.TempDir()
	priv := testKeyPair(t)
	other := testKeyPair(t)
	plainPath := writePlaintext(t, dir, 128)

	cipherPath := filepath.Join(dir, "report.zip.enc")
	manifestPath := filepath.Join(dir, "encryption.json")
	require.NoError(t, Seal(plainPath, cipherPath, manifestPath, AlgorithmAES128GCM, &priv.PublicKey))

	outPath := filepath.Join(dir, "recovered.bin")
	err := Open(cipherPath, outPath, manifestPath, other)
	require.Error(t, err)
}

func TestSeal_ManifestFieldsMatchChunkCount(t *testing.T) {
	dir := t.TempDir()
	priv := testKeyPair(t)
	plainPath := writePlaintext(t, dir, ChunkSize*2)

	cipherPath := filepath.Join(dir, "report.zip.enc")
	manifestPath := filepath.Join(dir, "encryption.json")
	require.NoError(t, Seal(plainPath, cipherPath, manifestPath, AlgorithmAES128GCM, &priv.PublicKey))

	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	var manifest Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))

	require.Equal(t, string(AlgorithmAES128GCM), manifest.Algorithm)
	require.Equal(t, ChunkSize, manifest.ChunkSize)
	// Two full chunks plus the empty end-of-stream marker.
	require.Equal(t, 3, manifest.TotalChunks)
	require.NotEmpty(t, manifest.WrappedKey)
	require.NotEmpty(t, manifest.BaseNonce)
}

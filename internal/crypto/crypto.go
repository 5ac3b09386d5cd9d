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

// Package crypto implements the crypto core (§4.8): a hybrid scheme
// sealing report.zip under a fresh symmetric key wrapped with the
// workflow's RSA public key, encrypted in fixed-size chunks under an
// AEAD cipher so the whole archive is never held in memory at once.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"golang.org/x/crypto/chacha20poly1305"

	caseerrors "github.com/tombee/casefile/pkg/errors"
)

// Algorithm names one of the two supported AEAD stream ciphers.
type Algorithm string

const (
	AlgorithmAES128GCM        Algorithm = "AES-128-GCM"
	AlgorithmChaCha20Poly1305 Algorithm = "CHACHA20-POLY1305"
)

// ChunkSize is the fixed plaintext chunk size the stream cipher seals
// each AEAD frame over.
const ChunkSize = 64 * 1024

// nonceSize is the size of both the base nonce and each chunk nonce;
// both supported algorithms use a 96-bit AEAD nonce.
const nonceSize = 12

// frameLenSize is the width of the big-endian length prefix written
// before each sealed chunk. The final plaintext chunk of a stream is
// almost never exactly ChunkSize bytes, so its sealed frame (and the
// end-of-stream marker after it) are shorter than a full chunk's
// frame; without an explicit length a fixed-size read coalesces the
// short final frame with the one after it. The prefix lets Open read
// exactly one frame at a time regardless of its size.
const frameLenSize = 4

// Manifest is the on-disk encryption.json sidecar written next to the
// sealed archive.
type Manifest struct {
	Algorithm   string `json:"algorithm"`
	WrappedKey  string `json:"wrapped_key"`
	BaseNonce   string `json:"base_nonce"`
	ChunkSize   int    `json:"chunk_size"`
	TotalChunks int    `json:"total_chunks"`
}

func keySize(alg Algorithm) int {
	if alg == AlgorithmChaCha20Poly1305 {
		return chacha20poly1305.KeySize
	}
	return 16 // AES-128
}

func newAEAD(alg Algorithm, key []byte) (cipher.AEAD, error) {
	switch alg {
	case AlgorithmAES128GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case AlgorithmChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, &caseerrors.CryptoError{Algorithm: string(alg), Message: "unrecognized algorithm"}
	}
}

// writeFrame prefixes sealed with its length and writes both to w.
func writeFrame(w io.Writer, sealed []byte) error {
	var lenBuf [frameLenSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(sealed)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(sealed)
	return err
}

// readFrame reads one length-prefixed frame from r. It returns io.EOF
// only when r is exhausted exactly at a frame boundary; any other
// short read is reported as io.ErrUnexpectedEOF.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [frameLenSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	frame := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(r, frame); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return frame, nil
}

// chunkNonce derives the nonce for chunk index counter by XORing its
// little-endian encoding into the low 8 bytes of base, leaving the
// high 4 bytes fixed for the life of the stream.
func chunkNonce(base []byte, counter uint64) []byte {
	nonce := make([]byte, nonceSize)
	copy(nonce, base)
	var counterBytes [8]byte
	binary.LittleEndian.PutUint64(counterBytes[:], counter)
	for i := 0; i < 8; i++ {
		nonce[4+i] ^= counterBytes[i]
	}
	return nonce
}

// Seal encrypts the file at plaintextPath in ChunkSize frames under a
// freshly generated key, writing the ciphertext to ciphertextPath and
// the Manifest to manifestPath. The symmetric key is wrapped under pub
// with RSA-OAEP-SHA256. A trailing empty chunk marks end-of-stream so
// Open can detect truncation.
func Seal(plaintextPath, ciphertextPath, manifestPath string, alg Algorithm, pub *rsa.PublicKey) error {
	key := make([]byte, keySize(alg))
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return &caseerrors.CryptoError{Algorithm: string(alg), Message: "generating symmetric key", Cause: err}
	}
	baseNonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, baseNonce); err != nil {
		return &caseerrors.CryptoError{Algorithm: string(alg), Message: "generating base nonce", Cause: err}
	}

	aead, err := newAEAD(alg, key)
	if err != nil {
		return err
	}

	in, err := os.Open(plaintextPath)
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: string(alg), Message: "opening plaintext", Cause: err}
	}
	defer in.Close()

	out, err := os.Create(ciphertextPath)
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: string(alg), Message: "creating ciphertext", Cause: err}
	}
	defer out.Close()

	buf := make([]byte, ChunkSize)
	var counter uint64
	for {
		n, readErr := io.ReadFull(in, buf)
		if n > 0 {
			sealed := aead.Seal(nil, chunkNonce(baseNonce, counter), buf[:n], nil)
			if err := writeFrame(out, sealed); err != nil {
				return &caseerrors.CryptoError{Algorithm: string(alg), Message: "writing sealed chunk", Cause: err}
			}
			counter++
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return &caseerrors.CryptoError{Algorithm: string(alg), Message: "reading plaintext", Cause: readErr}
		}
	}

	// End-of-stream marker: a final empty chunk under the next counter.
	final := aead.Seal(nil, chunkNonce(baseNonce, counter), nil, nil)
	if err := writeFrame(out, final); err != nil {
		return &caseerrors.CryptoError{Algorithm: string(alg), Message: "writing end-of-stream marker", Cause: err}
	}
	counter++

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: string(alg), Message: "wrapping symmetric key", Cause: err}
	}

	manifest := Manifest{
		Algorithm:   string(alg),
		WrappedKey:  base64.StdEncoding.EncodeToString(wrappedKey),
		BaseNonce:   base64.StdEncoding.EncodeToString(baseNonce),
		ChunkSize:   ChunkSize,
		TotalChunks: int(counter),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: string(alg), Message: "encoding manifest", Cause: err}
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return &caseerrors.CryptoError{Algorithm: string(alg), Message: "writing manifest", Cause: err}
	}
	return nil
}

// Open reverses Seal: it unwraps the symmetric key with priv, then
// decrypts each chunk in order, verifying the AEAD tag. Any tag
// mismatch is fatal and reported as tampering; a stream that ends
// before manifest.TotalChunks is reported as truncated.
func Open(ciphertextPath, plaintextPath, manifestPath string, priv *rsa.PrivateKey) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return &caseerrors.CryptoError{Message: "reading manifest", Cause: err}
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return &caseerrors.CryptoError{Message: "decoding manifest", Cause: err}
	}
	alg := Algorithm(manifest.Algorithm)

	wrappedKey, err := base64.StdEncoding.DecodeString(manifest.WrappedKey)
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "decoding wrapped key", Cause: err}
	}
	baseNonce, err := base64.StdEncoding.DecodeString(manifest.BaseNonce)
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "decoding base nonce", Cause: err}
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrappedKey, nil)
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "unwrapping symmetric key", Cause: err}
	}

	aead, err := newAEAD(alg, key)
	if err != nil {
		return err
	}

	in, err := os.Open(ciphertextPath)
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "opening ciphertext", Cause: err}
	}
	defer in.Close()

	out, err := os.Create(plaintextPath)
	if err != nil {
		return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "creating plaintext", Cause: err}
	}
	defer out.Close()

	var counter uint64
	for {
		frame, err := readFrame(in)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "tampered: truncated chunk"}
			}
			return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "reading ciphertext", Cause: err}
		}

		plain, openErr := aead.Open(nil, chunkNonce(baseNonce, counter), frame, nil)
		if openErr != nil {
			return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "tampered: AEAD authentication failed", Cause: openErr}
		}
		if len(plain) == 0 {
			// End-of-stream marker.
			counter++
			break
		}
		if _, err := out.Write(plain); err != nil {
			return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "writing plaintext", Cause: err}
		}
		counter++
	}

	if int(counter) != manifest.TotalChunks {
		return &caseerrors.CryptoError{Algorithm: manifest.Algorithm, Message: "tampered: chunk count does not match manifest"}
	}
	return nil
}

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

package report

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	casecrypto "github.com/tombee/casefile/internal/crypto"
	caseerrors "github.com/tombee/casefile/pkg/errors"
	"github.com/tombee/casefile/pkg/workflow"
)

// EncryptedArchivePath is where Seal writes the sealed archive, replacing
// the plaintext report.zip produced by Archive.
func (r Root) EncryptedArchivePath() string { return r.ArchivePath() + ".enc" }

// ManifestPath is where Seal writes the encryption manifest.
func (r Root) ManifestPath() string { return r.Path + "/encryption.json" }

// Seal encrypts root's report.zip under policy.Encryption, if enabled, and
// removes the plaintext archive once the sealed copy and manifest are
// written. It is a no-op when encryption is disabled.
func Seal(root Root, policy workflow.EncryptionConfig) error {
	if !policy.Enabled {
		return nil
	}

	pub, err := loadPublicKey(policy.PublicKeyPath)
	if err != nil {
		return err
	}

	alg := casecrypto.Algorithm(policy.Algorithm)
	if alg == "" {
		alg = casecrypto.AlgorithmAES128GCM
	}

	if err := casecrypto.Seal(root.ArchivePath(), root.EncryptedArchivePath(), root.ManifestPath(), alg, pub); err != nil {
		return err
	}

	return os.Remove(root.ArchivePath())
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	if path == "" {
		return nil, &caseerrors.CryptoError{Message: "encryption enabled but public_key_path is empty"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &caseerrors.CryptoError{Message: "reading public key", Cause: err}
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &caseerrors.CryptoError{Message: "public key is not valid PEM"}
	}

	if pub, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return pub, nil
	}
	generic, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, &caseerrors.CryptoError{Message: "parsing public key", Cause: err}
	}
	pub, ok := generic.(*rsa.PublicKey)
	if !ok {
		return nil, &caseerrors.CryptoError{Message: "public key is not RSA"}
	}
	return pub, nil
}

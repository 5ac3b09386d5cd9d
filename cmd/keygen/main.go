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

// Command keygen emits an RSA keypair for use as a workflow's
// encryption.public_key_path recipient. It takes positional arguments
// only: no flag-parsing library, matching the collector's narrower
// CLI-parsing surface for its auxiliary binaries.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

const keyBits = 2048

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <private-key-out.pem> <public-key-out.pem>\n", os.Args[0])
		os.Exit(2)
	}
	privPath, pubPath := os.Args[1], os.Args[2]

	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generating key: %v\n", err)
		os.Exit(1)
	}

	privBlock := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
	if err := os.WriteFile(privPath, pem.EncodeToMemory(privBlock), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "writing private key: %v\n", err)
		os.Exit(1)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encoding public key: %v\n", err)
		os.Exit(1)
	}
	pubBlock := &pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}
	if err := os.WriteFile(pubPath, pem.EncodeToMemory(pubBlock), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "writing public key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s (private, keep offline) and %s (public, reference in reporting.encryption.public_key_path)\n", privPath, pubPath)
}

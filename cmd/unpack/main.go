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

// Command unpack is the external collaborator that reverses a collector
// report: it unseals report.zip.enc (if present), extracts the archive,
// reads metadata.csv, and restores every captured file to its original
// path under a destination directory, re-verifying its SHA-256. Any AEAD
// authentication failure or hash mismatch is reported as tampering.
// Positional arguments only, matching the collector's auxiliary binaries.
package main

import (
	"archive/zip"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/csv"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	casecrypto "github.com/tombee/casefile/internal/crypto"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <report-dir> <private-key.pem|-> <restore-dir>\n", os.Args[0])
		os.Exit(2)
	}
	reportDir, keyPath, destDir := os.Args[1], os.Args[2], os.Args[3]

	stagingDir, err := unsealAndExtract(reportDir, keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unpack failed: %v\n", err)
		os.Exit(1)
	}

	if err := restore(stagingDir, destDir); err != nil {
		fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("restored report contents to %s\n", destDir)
}

// unsealAndExtract returns a directory containing the loose report layout
// (action_output/, store_files/, metadata.csv): it decrypts report.zip.enc
// when present, then extracts whichever report.zip it finds. A report
// directory that was never archived (zip_archive.enabled=false) is used
// as-is.
func unsealAndExtract(reportDir, keyPath string) (string, error) {
	encPath := filepath.Join(reportDir, "report.zip.enc")
	zipPath := filepath.Join(reportDir, "report.zip")
	manifestPath := filepath.Join(reportDir, "encryption.json")

	if _, err := os.Stat(encPath); err == nil {
		if keyPath == "" || keyPath == "-" {
			return "", fmt.Errorf("report is encrypted but no private key was given")
		}
		priv, err := loadPrivateKey(keyPath)
		if err != nil {
			return "", err
		}
		if err := casecrypto.Open(encPath, zipPath, manifestPath, priv); err != nil {
			return "", err
		}
	}

	if _, err := os.Stat(zipPath); err != nil {
		if os.IsNotExist(err) {
			return reportDir, nil
		}
		return "", err
	}

	stagingDir, err := os.MkdirTemp("", "unpack-*")
	if err != nil {
		return "", err
	}
	if err := extractZip(zipPath, stagingDir); err != nil {
		return "", err
	}
	return stagingDir, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("private key is not valid PEM")
	}
	if priv, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return priv, nil
	}
	generic, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	priv, ok := generic.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return priv, nil
}

// extractZip unpacks archive into destDir, refusing any member whose
// cleaned path would escape destDir.
func extractZip(archive, destDir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("zip member %q escapes destination directory", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := copyZipMember(f, target); err != nil {
			return err
		}
	}
	return nil
}

func copyZipMember(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// restore reads stagingDir/metadata.csv and copies each non-skipped
// store_files entry to its original path under destDir, re-verifying the
// SHA-256 recorded at capture time.
func restore(stagingDir, destDir string) error {
	f, err := os.Open(filepath.Join(stagingDir, "metadata.csv"))
	if err != nil {
		return fmt.Errorf("opening metadata.csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading metadata.csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, required := range []string{"sha256", "source_path", "error"} {
		if _, ok := idx[required]; !ok {
			return fmt.Errorf("metadata.csv is missing required column %q", required)
		}
	}

	restored, skipped := 0, 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading metadata.csv: %w", err)
		}

		if record[idx["error"]] != "" {
			skipped++
			continue
		}
		hash := record[idx["sha256"]]
		sourcePath := record[idx["source_path"]]

		src := filepath.Join(stagingDir, "store_files", hash)
		dest, err := destinationFor(destDir, sourcePath)
		if err != nil {
			return err
		}
		if err := copyAndVerify(src, dest, hash); err != nil {
			return fmt.Errorf("restoring %s: %w", sourcePath, err)
		}
		restored++
	}

	fmt.Printf("restored %d files, skipped %d capture-failed rows\n", restored, skipped)
	return nil
}

// destinationFor maps an original absolute source path onto destDir,
// stripping any volume name and leading separators, and refuses a result
// that would escape destDir.
func destinationFor(destDir, sourcePath string) (string, error) {
	clean := sourcePath
	if vol := filepath.VolumeName(clean); vol != "" {
		clean = strings.TrimPrefix(clean, vol)
	}
	clean = strings.TrimLeft(clean, `/\`)

	target := filepath.Join(destDir, filepath.FromSlash(clean))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("source path %q escapes destination directory", sourcePath)
	}
	return target, nil
}

func copyAndVerify(src, dest, wantHash string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		return err
	}
	gotHash := hex.EncodeToString(h.Sum(nil))
	if gotHash != wantHash {
		return fmt.Errorf("tampered: SHA-256 mismatch, expected %s got %s", wantHash, gotHash)
	}
	return nil
}

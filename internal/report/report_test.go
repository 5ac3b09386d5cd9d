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
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tombee/casefile/pkg/workflow"
)

func TestPrepare_CreatesFixedLayout(t *testing.T) {
	dir := t.TempDir()
	root, err := Prepare(filepath.Join(dir, "report"))
	require.NoError(t, err)

	for _, d := range []string{root.ActionOutputDir(), root.LootDir(), root.StoreFilesDir()} {
		info, statErr := os.Stat(d)
		require.NoError(t, statErr)
		require.True(t, info.IsDir())
	}
}

func TestArchive_BundlesLayoutAndRemovesOriginals(t *testing.T) {
	dir := t.TempDir()
	root, err := Prepare(filepath.Join(dir, "report"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root.StoreFilesDir(), "abc123"), []byte("payload"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root.ActionOutputDir(), "step1.stdout"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(root.MetadataPath(), []byte("sha256,source_path\n"), 0o644))

	require.NoError(t, Archive(root, workflow.ReportingPolicy{}))

	_, err = os.Stat(root.ArchivePath())
	require.NoError(t, err)
	_, err = os.Stat(root.StoreFilesDir())
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(root.MetadataPath())
	require.True(t, os.IsNotExist(err))

	zr, err := zip.OpenReader(root.ArchivePath())
	require.NoError(t, err)
	defer zr.Close()

	names := make(map[string]zip.FileHeader)
	for _, f := range zr.File {
		names[f.Name] = f.FileHeader
	}
	require.Contains(t, names, "store_files/abc123")
	require.Contains(t, names, "action_output/step1.stdout")
	require.Contains(t, names, "metadata.csv")
}

func TestArchive_DisabledLeavesTreeInPlace(t *testing.T) {
	dir := t.TempDir()
	root, err := Prepare(filepath.Join(dir, "report"))
	require.NoError(t, err)

	disabled := false
	require.NoError(t, Archive(root, workflow.ReportingPolicy{ZipArchive: workflow.ZipArchiveConfig{Enabled: &disabled}}))

	_, err = os.Stat(root.ArchivePath())
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(root.StoreFilesDir())
	require.NoError(t, err)
}

func TestArchive_OversizedFileIsStoredNotDeflated(t *testing.T) {
	dir := t.TempDir()
	root, err := Prepare(filepath.Join(dir, "report"))
	require.NoError(t, err)

	big := make([]byte, 200)
	require.NoError(t, os.WriteFile(filepath.Join(root.StoreFilesDir(), "big"), big, 0o644))

	require.NoError(t, Archive(root, workflow.ReportingPolicy{Compression: workflow.CompressionConfig{SizeLimit: "100"}}))

	zr, err := zip.OpenReader(root.ArchivePath())
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == "store_files/big" {
			require.Equal(t, zip.Store, f.Method)
			return
		}
	}
	t.Fatal("store_files/big not found in archive")
}

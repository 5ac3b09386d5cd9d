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

package yaralite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tombee/casefile/internal/yaralite"
)

func TestCompile_FromTestdata(t *testing.T) {
	rs, err := yaralite.Compile([]string{"testdata/simple.yar"})
	require.NoError(t, err)
	require.Len(t, rs.Rules, 3)
}

func TestCompile_MissingFileErrors(t *testing.T) {
	_, err := yaralite.Compile([]string{"testdata/does-not-exist.yar"})
	require.Error(t, err)
}

func TestScanFiles_MatchesAndMisses(t *testing.T) {
	rs, err := yaralite.Compile([]string{"testdata/simple.yar"})
	require.NoError(t, err)

	dir := t.TempDir()
	matchPath := filepath.Join(dir, "match.txt")
	missPath := filepath.Join(dir, "miss.txt")
	require.NoError(t, os.WriteFile(matchPath, []byte("powershell -enc xyz"), 0o644))
	require.NoError(t, os.WriteFile(missPath, []byte("nothing interesting here"), 0o644))

	results, err := yaralite.ScanFiles(context.Background(), rs, []string{matchPath, missPath}, 2, time.Second)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byPath := map[string]yaralite.FileResult{}
	for _, r := range results {
		byPath[r.Path] = r
	}

	require.Contains(t, byPath[matchPath].Matched, "SuspiciousPowershell")
	require.Empty(t, byPath[missPath].Matched)
	require.False(t, byPath[matchPath].TimedOut)
}

func TestScanFiles_PerFileTimeoutIsRecordedNotFatal(t *testing.T) {
	rs, err := yaralite.Compile([]string{"testdata/simple.yar"})
	require.NoError(t, err)

	dir := t.TempDir()
	slowPath := filepath.Join(dir, "slow.txt")
	require.NoError(t, os.WriteFile(slowPath, []byte("alpha beta"), 0o644))

	results, err := yaralite.ScanFiles(context.Background(), rs, []string{slowPath}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].TimedOut, "a zero timeout should always fire before the read completes")
}

func TestScanFiles_NonexistentFileIsPerFileError(t *testing.T) {
	rs, err := yaralite.Compile([]string{"testdata/simple.yar"})
	require.NoError(t, err)

	results, err := yaralite.ScanFiles(context.Background(), rs, []string{"/no/such/file"}, 1, time.Second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
}

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

package capture

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	caseerrors "github.com/tombee/casefile/pkg/errors"
)

// dedupIndex tracks which content hashes have already been captured
// into store_files/ during this run, so concurrent parallel steps
// hitting the same file don't race to write the same destination.
type dedupIndex struct {
	db *sql.DB
}

// openDedupIndex opens (creating if necessary) a run-scoped sqlite
// database at path. The database is a purely internal accelerator —
// metadata.csv remains the authoritative external record — and is
// deleted along with the rest of action_output/'s temp state before
// archival.
func openDedupIndex(path string) (*dedupIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, caseerrors.Wrapf(err, "opening dedup index %s", path)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS captured (
	sha256 TEXT PRIMARY KEY,
	dest_path TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, caseerrors.Wrapf(err, "initializing dedup index schema")
	}
	return &dedupIndex{db: db}, nil
}

// lookup reports whether hash is already recorded as captured,
// returning (destPath, true) for an existing entry or ("", false) when
// it is not. It records nothing; the caller inserts the entry via
// record once the destination path is known.
func (d *dedupIndex) lookup(hash string) (destPath string, found bool, err error) {
	row := d.db.QueryRow(`SELECT dest_path FROM captured WHERE sha256 = ?`, hash)
	err = row.Scan(&destPath)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, caseerrors.Wrapf(err, "looking up dedup entry for %s", hash)
	}
	return destPath, true, nil
}

func (d *dedupIndex) record(hash, destPath string) error {
	_, err := d.db.Exec(`INSERT OR IGNORE INTO captured (sha256, dest_path) VALUES (?, ?)`, hash, destPath)
	if err != nil {
		return caseerrors.Wrapf(err, "recording dedup entry for %s", hash)
	}
	return nil
}

func (d *dedupIndex) Close() error {
	if d.db == nil {
		return nil
	}
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("closing dedup index: %w", err)
	}
	return nil
}

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
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	caseerrors "github.com/tombee/casefile/pkg/errors"
	"github.com/tombee/casefile/pkg/workflow"
)

// metadataColumns are the fixed header columns. Time and extra-attribute
// columns are present in the header whenever the run enables them but
// always filled in or left blank per row — the header never changes
// mid-run even if a later row has nothing to put in an optional column.
type metadataColumns struct {
	modifiedTime bool
	accessedTime bool
	createdTime  bool
	extraAttrs   bool
}

func columnsFromFlags(f workflow.MetadataFlags) metadataColumns {
	return metadataColumns{
		modifiedTime: boolOr(f.ModifiedTime, true),
		accessedTime: boolOr(f.AccessedTime, true),
		createdTime:  boolOr(f.CreatedTime, true),
		extraAttrs:   boolOr(f.ExtraAttrs, false),
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (c metadataColumns) header() []string {
	h := []string{"sha256", "source_path", "size_bytes"}
	if c.modifiedTime {
		h = append(h, "modified_time")
	}
	if c.accessedTime {
		h = append(h, "accessed_time")
	}
	if c.createdTime {
		h = append(h, "created_time")
	}
	if c.extraAttrs {
		h = append(h, "extra_attrs")
	}
	return append(h, "error")
}

// Row is one captured (or skipped) file's metadata.
type Row struct {
	SHA256     string
	SourcePath string
	SizeBytes  int64
	MAC        MACTimes
	ExtraAttrs string
	Err        string // non-empty marks this row as a skipped capture
}

func (r Row) record(c metadataColumns, loc *time.Location) []string {
	rec := []string{r.SHA256, r.SourcePath, strconv.FormatInt(r.SizeBytes, 10)}
	if c.modifiedTime {
		rec = append(rec, formatMACTime(r.MAC.Modified, loc))
	}
	if c.accessedTime {
		rec = append(rec, formatMACTime(r.MAC.Accessed, loc))
	}
	if c.createdTime {
		rec = append(rec, formatMACTime(r.MAC.Created, loc))
	}
	if c.extraAttrs {
		rec = append(rec, r.ExtraAttrs)
	}
	return append(rec, r.Err)
}

func formatMACTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(time.RFC3339)
}

// metadataWriter serializes CSV row appends under a mutex, per the
// "row-level append under a mutex" requirement — multiple parallel
// store/yara actions can capture concurrently and must not interleave
// partial rows.
type metadataWriter struct {
	mu      sync.Mutex
	file    *os.File
	csv     *csv.Writer
	columns metadataColumns
	loc     *time.Location
}

func newMetadataWriter(path string, flags workflow.MetadataFlags, loc *time.Location) (*metadataWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, caseerrors.Wrapf(err, "creating metadata file %s", path)
	}
	w := &metadataWriter{
		file:    f,
		csv:     csv.NewWriter(f),
		columns: columnsFromFlags(flags),
		loc:     loc,
	}
	if err := w.csv.Write(w.columns.header()); err != nil {
		f.Close()
		return nil, caseerrors.Wrapf(err, "writing metadata header")
	}
	w.csv.Flush()
	return w, nil
}

func (w *metadataWriter) Append(row Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write(row.record(w.columns, w.loc)); err != nil {
		return caseerrors.Wrapf(err, "appending metadata row for %s", row.SourcePath)
	}
	w.csv.Flush()
	return w.csv.Error()
}

func (w *metadataWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

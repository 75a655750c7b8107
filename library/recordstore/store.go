// Package recordstore loads and commits homogeneous record sets kept in CSV
// flat files. A commit is whole-file: the set is written to a temporary file
// next to the target, forced to stable storage and renamed over the target.
package recordstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrIO marks a file-system failure while committing a record set.
var ErrIO = errors.New("record store i/o error")

// Store reads and writes record sets. It holds no table state of its own.
type Store struct {
	logger *slog.Logger
	rename func(oldpath, newpath string) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report swallowed load failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Store.
func New(opts ...Option) *Store {
	s := &Store{
		logger: slog.Default(),
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the table at path and conforms it to schema.
//
// A missing or empty file yields an empty set. A file that cannot be read or
// parsed is logged and also yields an empty set, so callers must not assume
// an empty result means the table holds no data.
func (s *Store) Load(path string, schema Schema) *RecordSet {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("stat record file", "path", path, "error", err)
		}
		return NewRecordSet(schema)
	}
	if info.Size() == 0 {
		return NewRecordSet(schema)
	}

	rows, err := readRows(path)
	if err != nil {
		s.logger.Error("load record file, continuing with an empty set", "path", path, "error", err)
		return NewRecordSet(schema)
	}
	if len(rows) == 0 {
		return NewRecordSet(schema)
	}

	header := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(header))
	rs := &RecordSet{schema: schema}
	for i, name := range rows[0] {
		header[i] = normalizeHeader(name)
		if header[i] == "" || seen[header[i]] {
			continue
		}
		seen[header[i]] = true
		rs.Columns = append(rs.Columns, header[i])
	}
	for _, c := range schema {
		if !seen[c.Name] {
			rs.Columns = append(rs.Columns, c.Name)
		}
	}

	for _, row := range rows[1:] {
		rec := make(Record, len(rs.Columns))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			if _, dup := rec[name]; dup {
				continue
			}
			rec[name] = row[i]
		}
		for _, name := range rs.Columns {
			raw := rec[name]
			if c, ok := schema.column(name); ok {
				rec[name] = c.normalize(raw)
			} else {
				rec[name] = Column{Name: name}.normalize(raw)
			}
		}
		rs.Records = append(rs.Records, rec)
	}
	return rs
}

func readRows(path string) ([][]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// Save commits rs to path. On any failure the temporary file is removed and
// the previously committed file is left untouched; the returned error wraps ErrIO.
func (s *Store) Save(path string, rs *RecordSet) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir %s: %w", ErrIO, dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create temp file for %s: %w", ErrIO, path, err)
	}
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			f.Close()
		}
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("remove temp file", "path", tmp, "error", rmErr)
		}
	}()

	if err = writeRows(f, rs); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, tmp, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrIO, tmp, err)
	}
	closed = true
	if err = f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, tmp, err)
	}
	if err = s.rename(tmp, path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", ErrIO, path, err)
	}

	// Persist the directory entry; not every platform supports syncing a directory.
	if d, dirErr := os.Open(dir); dirErr == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

func writeRows(f *os.File, rs *RecordSet) error {
	w := csv.NewWriter(f)
	if err := w.Write(rs.Columns); err != nil {
		return err
	}
	row := make([]string, len(rs.Columns))
	for _, rec := range rs.Records {
		for i, name := range rs.Columns {
			row[i] = rec[name]
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

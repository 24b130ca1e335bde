// Package store persists entity-partitioned datasets and reconciles new rows
// into them by content hash.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// Row is a persisted record identified by its content hash.
type Row interface {
	RowHash() string
	RowDate() string
}

// Dataset is a directory of parquet files partitioned by entity:
// <root>/<key>=<eid>/part-<uuid>.parquet. Files are only ever added.
type Dataset[T Row] struct {
	root string
	key  string
}

// NewDataset returns a dataset rooted at root using key as partition column name.
func NewDataset[T Row](root, key string) *Dataset[T] {
	return &Dataset[T]{root: root, key: key}
}

// Root returns the dataset directory.
func (d *Dataset[T]) Root() string { return d.root }

// PartitionDir returns the directory holding eid's files.
func (d *Dataset[T]) PartitionDir(eid string) string {
	return filepath.Join(d.root, d.key+"="+eid)
}

// Exists reports whether eid has a partition directory.
func (d *Dataset[T]) Exists(eid string) bool {
	info, err := os.Stat(d.PartitionDir(eid))
	return err == nil && info.IsDir()
}

// Read returns every row of eid's partition. A missing partition is empty.
func (d *Dataset[T]) Read(eid string) ([]T, error) {
	files, err := filepath.Glob(filepath.Join(d.PartitionDir(eid), "part-*.parquet"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	var rows []T
	for _, f := range files {
		part, err := parquet.ReadFile[T](f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		rows = append(rows, part...)
	}
	return rows, nil
}

// Append writes rows as a new file in eid's partition and returns its path.
// An empty batch writes nothing. The file appears atomically.
func (d *Dataset[T]) Append(eid string, rows []T) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	dir := d.PartitionDir(eid)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create partition %s: %w", dir, err)
	}
	name := "part-" + uuid.NewString() + ".parquet"
	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := parquet.WriteFile(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	final := filepath.Join(dir, name)
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit %s: %w", final, err)
	}
	return final, nil
}

// Partitions lists the entities that have a partition, sorted.
func (d *Dataset[T]) Partitions() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	prefix := d.key + "="
	var eids []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			eids = append(eids, strings.TrimPrefix(e.Name(), prefix))
		}
	}
	sort.Strings(eids)
	return eids, nil
}

// Package ingest loads the loan book into a table, keeping a binary gob
// cache next to the source file.
package ingest

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scorecard/adapters/excel"
	"scorecard/domain/dataset"
	"scorecard/internal"
	"scorecard/internal/errors"
)

var nan = math.NaN()

// sourceExtensions are tried in order when the cache is missing
var sourceExtensions = []string{".csv", ".xlsx"}

// CachedLoader loads a table from its cache, parsing the source on a miss
type CachedLoader struct {
	logger *internal.Logger
}

// NewCachedLoader creates a loader
func NewCachedLoader(logger *internal.Logger) *CachedLoader {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &CachedLoader{logger: logger.WithComponent("Ingest")}
}

// Load returns the table cached at cachePath. When the cache does not exist
// the sibling source file (same path with a .csv or .xlsx extension) is
// parsed and the cache is written. If cachePath itself names a .csv or
// .xlsx file it is parsed and the cache goes to the same path with a .gob
// extension.
func (l *CachedLoader) Load(ctx context.Context, cachePath string) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cachePath, source := resolvePaths(cachePath)

	if _, err := os.Stat(cachePath); err == nil {
		start := time.Now()
		t, err := readCache(cachePath)
		if err != nil {
			return nil, errors.IngestionError(cachePath, err)
		}
		l.logger.Info("loaded %s from cache in %v (%d rows, %d columns)",
			cachePath, time.Since(start).Round(time.Millisecond), t.Rows(), len(t.Names()))
		return t, nil
	}

	if source == "" {
		source = findSource(cachePath)
	}
	if source == "" {
		return nil, errors.IngestionError(cachePath, fmt.Errorf("no cache and no .csv or .xlsx source next to it"))
	}

	rows, err := excel.NewDataReader(source, l.logger).ReadRows()
	if err != nil {
		return nil, errors.IngestionError(source, err)
	}
	t, err := BuildTable(rows)
	if err != nil {
		return nil, errors.IngestionError(source, err)
	}

	if err := writeCache(cachePath, t); err != nil {
		l.logger.Warn("could not write cache %s: %v", cachePath, err)
	} else {
		l.logger.Debug("wrote cache %s", cachePath)
	}
	return t, nil
}

func resolvePaths(path string) (cache, source string) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range sourceExtensions {
		if ext == e {
			return strings.TrimSuffix(path, filepath.Ext(path)) + ".gob", path
		}
	}
	return path, ""
}

func findSource(cachePath string) string {
	base := strings.TrimSuffix(cachePath, filepath.Ext(cachePath))
	for _, ext := range sourceExtensions {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	return ""
}

func readCache(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snap dataset.Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return dataset.FromSnapshot(snap)
}

// writeCache writes through a temporary file so a crash never leaves a
// truncated cache behind
func writeCache(path string, t *dataset.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(tmp).Encode(t.Snapshot()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package lode

import (
	"context"
	"slices"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// NewReadDataset opens dataset for reading with the write path's layout
// and codec. An empty name means DefaultDataset.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	id := Config{Dataset: dataset}.dataset()
	ds, err := newDataset(id, factory)
	if err != nil {
		return nil, WrapInitError(err, id)
	}
	return ds, nil
}

// NewReadDatasetFS opens a read dataset rooted at a local directory.
func NewReadDatasetFS(dataset, root string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(root))
}

// NewReadDatasetS3 opens a read dataset in a bucket.
func NewReadDatasetS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := s3cfg.factory(ctx)
	if err != nil {
		return nil, err
	}
	return NewReadDataset(dataset, factory)
}

// snapshotMatchesFilter reports whether any manifest file sits under the
// key=value partition. An empty value matches every snapshot.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue compares whole path segments, so report_id=r-1
// does not match report_id=r-10.
func matchesPartitionValue(path, key, value string) bool {
	return slices.Contains(strings.Split(path, "/"), key+"="+value)
}

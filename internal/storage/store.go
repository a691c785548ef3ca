// Package storage writes normalized job rows to a persistence target in
// fixed-size batches.
package storage

import (
	"context"
	"fmt"
)

// DefaultBatchSize is the number of rows sent per upsert call.
const DefaultBatchSize = 100

// Sink is a persistence target that inserts rows or updates the existing row
// sharing the conflict key.
type Sink interface {
	Name() string
	UpsertBatch(ctx context.Context, table string, records []map[string]any, conflictKey []string) error
	Close() error
}

// BatchError reports the batch that failed. Batches before it were written
// and are not rolled back.
type BatchError struct {
	Index   int
	Offset  int
	Size    int
	Written int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("upsert batch %d (rows %d-%d) failed after %d rows written: %v",
		e.Index, e.Offset, e.Offset+e.Size-1, e.Written, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Upsert sends records to sink in order, batchSize rows at a time, and stops
// at the first failing batch. It returns the number of rows written.
func Upsert(ctx context.Context, sink Sink, table string, records []map[string]any, conflictKey []string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	written := 0
	for index, offset := 0, 0; offset < len(records); index, offset = index+1, offset+batchSize {
		end := offset + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[offset:end]

		err := ctx.Err()
		if err == nil {
			err = sink.UpsertBatch(ctx, table, batch, conflictKey)
		}
		if err != nil {
			return written, &BatchError{
				Index:   index,
				Offset:  offset,
				Size:    len(batch),
				Written: written,
				Err:     err,
			}
		}
		written += len(batch)
	}
	return written, nil
}

// Package collector fans a prompt list out over a bounded pool of workers and
// funnels every completion into the result store. The prompt list is cut into
// contiguous shards; each shard is processed sequentially by one worker with
// one credential, so concurrency is bounded by the worker count and a dead
// credential damages at most its own shard.
package collector

import "github.com/manyoso/GPT4ALL-collector/internal/prompts"

// Shard is a contiguous slice of the prompt list processed by one worker.
type Shard struct {
	// Index is the shard's position in the partition, starting at 0.
	Index int

	// Start is the offset of the shard's first prompt in the full list.
	Start int

	// Prompts are the records this shard covers.
	Prompts []prompts.Record
}

// Partition cuts records into shards of at most size prompts. Shard k covers
// [k*size, min((k+1)*size, len(records))), so every record lands in exactly
// one shard and the last shard may be short. size must be positive.
func Partition(records []prompts.Record, size int) []Shard {
	if size <= 0 || len(records) == 0 {
		return nil
	}

	shards := make([]Shard, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		shards = append(shards, Shard{
			Index:   len(shards),
			Start:   start,
			Prompts: records[start:end],
		})
	}
	return shards
}

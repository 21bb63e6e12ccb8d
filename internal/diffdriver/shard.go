package diffdriver

// numShardsFor picks the shard count spec.md §4.4 assigns to the index
// model, reused here for the diff driver's own entry-position sharding
// (§4.5): min(index_size/512 + 1, 16 x thread_count), floored at one.
func numShardsFor(indexSize, threadCount int) int {
	if threadCount < 1 {
		threadCount = 1
	}
	n := indexSize/512 + 1
	if cap := 16 * threadCount; n > cap {
		n = cap
	}
	if n < 1 {
		n = 1
	}
	return n
}

// entryShard is a position range [Start, End) into a sorted entry or
// candidate-path slice.
//
// spec.md §4.5 derives shard bounds as path prefixes (decrementing the
// final byte of a directory component to build an inclusive upper bound)
// because the reference implementation partitions a C API that only
// accepts string ranges. Since the entries this driver shards are already
// held in one sorted, random-access slice, a position range partitions the
// same key space without the byte-decrement arithmetic: every position
// boundary falls between two adjacent sorted keys. Unlike the string
// bounds, a position boundary is placed by count alone, so the entries of
// one directory can end up in two neighbouring shards. DESIGN.md records
// this choice.
type entryShard struct {
	Start, End int
}

// splitIntoShards partitions [0, n) into numShards contiguous, roughly
// equal ranges.
func splitIntoShards(n, numShards int) []entryShard {
	if numShards < 1 {
		numShards = 1
	}
	if numShards > n {
		if n == 0 {
			return []entryShard{{0, 0}}
		}
		numShards = n
	}

	shards := make([]entryShard, 0, numShards)
	base := n / numShards
	rem := n % numShards
	start := 0
	for i := 0; i < numShards; i++ {
		size := base
		if i < rem {
			size++
		}
		shards = append(shards, entryShard{Start: start, End: start + size})
		start += size
	}
	return shards
}

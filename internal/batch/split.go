package batch

// SplitIntoChunks divides a slice of items into order-preserving chunks of
// the given size. The final chunk may be smaller.
func SplitIntoChunks[T any](items []T, chunkSize int) [][]T {
	if chunkSize <= 0 {
		return nil
	}
	if len(items) == 0 {
		return [][]T{}
	}

	numChunks := (len(items) + chunkSize - 1) / chunkSize
	chunks := make([][]T, 0, numChunks)

	for i := 0; i < len(items); i += chunkSize {
		end := i + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}

	return chunks
}

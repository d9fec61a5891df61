package utils

// BatchStrings splits items into batches of at most batchSize.
func BatchStrings(items []string, batchSize int) [][]string {
	if len(items) == 0 {
		return [][]string{}
	}
	if batchSize <= 0 {
		batchSize = len(items)
	}

	var batches [][]string
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

// Paginate returns the 1-based page of items with the given limit.
func Paginate[T any](items []T, limit, page int) []T {
	if limit <= 0 || page <= 0 {
		return []T{}
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

package service

const (
	defaultTaskLimit = 10
	defaultUserLimit = 50
	maxLimit         = 100
)

// normalizePage clamps page to >= 1 and limit to (0, maxLimit], applying def
// when limit is unset.
func normalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

package queries

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type Page struct {
	Page  int
	Limit int
	Total int64
	Pages int64
}

// normalizePage clamps page to >= 1 and limit to 1..100 with a default of 20.
func normalizePage(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func newPage(page int, limit int, total int64) Page {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Page{Page: page, Limit: limit, Total: total, Pages: pages}
}

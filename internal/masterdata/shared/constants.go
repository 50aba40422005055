package shared

const (
	// DefaultPage is the first page of a listing.
	DefaultPage = 1
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 50
	// MaxLimit caps requested page sizes.
	MaxLimit = 500

	SortAsc  = "asc"
	SortDesc = "desc"
)

package filter

import "errors"

// Sentinel kinds for filter errors.
var (
	ErrInvalidYearMonth           = errors.New("invalid year-month")
	ErrSubcategoryWithoutCategory = errors.New("subcategory requires a category")
)

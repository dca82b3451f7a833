package astquery

import "errors"

var (
	errEmptySelector = errors.New("astquery: empty selector")
	errEmptySegment  = errors.New("astquery: empty segment in selector")
)

package volatility

import "errors"

// Error categories. Every failure of the comparison pipeline wraps exactly one of them.
var (
	// ErrDataSource reports a missing or empty price source.
	ErrDataSource = errors.New("data source error")
	// ErrDomain reports invalid mathematical input.
	ErrDomain = errors.New("domain error")
	// ErrConfig reports invalid window or lag parameters.
	ErrConfig = errors.New("config error")
)

package apperrors

import "errors"

var (
	ErrUnsupportedDialect  = errors.New("unsupported dialect")
	ErrUnknownType         = errors.New("unknown logical type")
	ErrInvalidERD          = errors.New("invalid ERD")
	ErrInvalidDSD          = errors.New("invalid DSD")
	ErrInvalidFD           = errors.New("invalid functional dependency")
	ErrNormalizationFailed = errors.New("normalization failed")
	ErrTooManyAttributes   = errors.New("too many attributes for candidate key search")
)

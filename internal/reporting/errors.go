package reporting

import "errors"

// Service errors.
var (
	ErrReportNotFound    = errors.New("report not found")
	ErrInvalidReportType = errors.New("invalid report type")
)

package models

import "errors"

// ErrInvalidDateRange is returned when a query's start date is after its end date
var ErrInvalidDateRange = errors.New("start date cannot be after end date")

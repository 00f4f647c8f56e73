package domain

import "errors"

var (
	// ErrMalformedWrapper means the response body did not contain a
	// parenthesized JSON value.
	ErrMalformedWrapper = errors.New("malformed jsonp wrapper")
	// ErrMissingKey means an expected key is absent from the payload.
	ErrMissingKey = errors.New("missing key")
	// ErrMalformedDate means a history date is not in "M.D" form.
	ErrMalformedDate = errors.New("malformed date")
	// ErrInvalidCount means a count could not be read as an integer.
	ErrInvalidCount = errors.New("invalid count")
	// ErrEmptySeries means there is nothing to plot.
	ErrEmptySeries = errors.New("empty series")
	// ErrMissingAttribute means a shapefile layer lacks a required column.
	ErrMissingAttribute = errors.New("missing shapefile attribute")
)

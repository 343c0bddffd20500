package status

import "errors"

var (
	ErrMissingAPIKey      = errors.New("recommend: api key not found")
	ErrInvalidPreferences = errors.New("recommend: please fill in at least the genres or mood")
	ErrMalformedResponse  = errors.New("recommend: malformed response")
	ErrUpstream           = errors.New("recommend: upstream unavailable")
)

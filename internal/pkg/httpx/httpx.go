package httpx

import "errors"

// HTTPStatusCoder is implemented by errors that carry an upstream HTTP
// status. The transports never retry on status; callers only map it back
// onto their own responses.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

func StatusCodeOf(err error) int {
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode()
	}
	return 0
}

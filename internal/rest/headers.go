package rest

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
)

// rateLimitHeaders reads the bucket state reported with a response. exhausted
// is true when remaining is zero, in which case resetAt is the epoch second
// the bucket frees up.
func rateLimitHeaders(h http.Header, bucketName string) (exhausted bool, resetAt int64, err error) {
	remaining, err := intHeader(h, headerRemaining, bucketName)
	if err != nil {
		return false, 0, err
	}
	if remaining < 0 {
		return false, 0, &MissingHeaderError{Header: headerRemaining, Value: strings.TrimSpace(h.Get(headerRemaining)), Bucket: bucketName}
	}
	if remaining > 0 {
		return false, 0, nil
	}

	resetAt, err = intHeader(h, headerReset, bucketName)
	if err != nil {
		return false, 0, err
	}
	return true, resetAt, nil
}

func intHeader(h http.Header, name, bucketName string) (int64, error) {
	raw := strings.TrimSpace(h.Get(name))
	if raw == "" {
		return 0, &MissingHeaderError{Header: name, Bucket: bucketName}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Some deployments send fractional reset seconds.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, &MissingHeaderError{Header: name, Value: raw, Bucket: bucketName}
		}
		value = int64(f)
		if float64(value) < f {
			value++
		}
	}
	return value, nil
}

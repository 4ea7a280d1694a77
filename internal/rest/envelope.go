package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/bucket"
)

// Request is a catalog entry whose response decodes into R.
//
// The set of requests is closed: every implementation lives in this package.
type Request[R any] interface {
	Bucket() bucket.Key
	route() route
	result(*R)
}

// Fetchable is a request with its result type erased. The dispatcher only
// sees Fetchables.
type Fetchable interface {
	Bucket() bucket.Key
	route() route
	decode(data []byte) (Fetched, error)
	resultType() string
}

// Fetched is a decoded response with its type erased.
type Fetched struct {
	value any
}

// Wrap erases the result type of req.
func Wrap[R any](req Request[R]) Fetchable {
	return envelope[R]{req: req}
}

// Unwrap recovers the concrete result. R must be the type the request was
// built for.
func Unwrap[R any](f Fetched) (R, error) {
	value, ok := f.value.(R)
	if !ok {
		var zero R
		return zero, fmt.Errorf("fetched value is %T, not %s", f.value, typeName[R]())
	}
	return value, nil
}

// SameBucket reports whether two requests share a rate-limit bucket. This is
// request equality; payloads are ignored.
func SameBucket(a, b Fetchable) bool {
	return a.Bucket() == b.Bucket()
}

// Call sends one request and waits for its decoded result.
func Call[R any](ctx context.Context, d *Dispatcher, req Request[R]) (R, error) {
	fetched, err := d.Fetch(ctx, Wrap(req))
	if err != nil {
		var zero R
		return zero, err
	}
	return Unwrap[R](fetched)
}

type envelope[R any] struct {
	req Request[R]
}

func (e envelope[R]) Bucket() bucket.Key { return e.req.Bucket() }

func (e envelope[R]) route() route { return e.req.route() }

func (e envelope[R]) resultType() string { return typeName[R]() }

func (e envelope[R]) decode(data []byte) (Fetched, error) {
	var out R
	if err := decodeInto(data, &out); err != nil {
		return Fetched{}, err
	}
	return Fetched{value: out}, nil
}

var errEmptyBody = errors.New("empty response body")

func decodeInto[R any](data []byte, out *R) error {
	trimmed := bytes.TrimSpace(data)
	_, wantsEmpty := any(out).(*core.Empty)

	if len(trimmed) == 0 {
		if wantsEmpty {
			return nil
		}
		return errEmptyBody
	}
	if !wantsEmpty && bytes.Equal(trimmed, []byte("null")) {
		return errors.New("null response body")
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return err
	}
	return validate(*out)
}

// validate checks a decoded result, element by element for list results.
func validate(v any) error {
	if check, ok := v.(core.Validator); ok {
		return check.Validate()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	for i := range rv.Len() {
		check, ok := rv.Index(i).Interface().(core.Validator)
		if !ok {
			return nil
		}
		if err := check.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func typeName[R any]() string {
	return reflect.TypeFor[R]().String()
}

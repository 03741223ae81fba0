package httpkit

import (
	"context"
	"encoding/json"
	"net/http"
)

// HTTPError interface for HTTP-aware errors with detailed causes
type HTTPError interface {
	HTTPCode() int
	Cause() error
	error
}

// Header constants
const (
	contentTypeHeader  = "Content-Type"
	contentTypeOptions = "X-Content-Type-Options"

	// WorkerSecretHeader carries the shared secret identifying internal workers
	WorkerSecretHeader = "X-Worker-Secret"
)

var (
	jsonContentType           = []string{"application/json; charset=utf-8"}
	nosniffContentTypeOptions = []string{"nosniff"}
)

func setDefaultHeaders(w http.ResponseWriter) {
	header := w.Header()
	if len(header[contentTypeHeader]) == 0 {
		header[contentTypeHeader] = jsonContentType
	}
	if len(header[contentTypeOptions]) == 0 {
		header[contentTypeOptions] = nosniffContentTypeOptions
	}
}

// Request-scoped error tracking, read back by the logging middleware
type ctxKeyError struct{}

type errorHolder struct {
	err error
}

// WithErrorTracking attaches an error holder to ctx unless one is already present
func WithErrorTracking(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyError{}, &errorHolder{})
}

// SetError records err on the request context
func SetError(ctx context.Context, err error) {
	if holder, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		holder.err = err
	}
}

// Error returns the error recorded on the request context
func Error(ctx context.Context) error {
	if holder, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		return holder.err
	}
	return nil
}

// HandlerFunc lets handlers return the response writer to run instead of writing directly
type HandlerFunc func(http.ResponseWriter, *http.Request) http.HandlerFunc

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(WithErrorTracking(r.Context()))

	if handler := h(w, r); handler != nil {
		handler(w, r)
	}
}

// JSON writes data with status 200
func JSON(data any) http.HandlerFunc {
	return JSONWithStatus(http.StatusOK, data)
}

// JSONWithStatus writes data with the given status code
func JSONWithStatus(status int, data any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setDefaultHeaders(w)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(data)
	}
}

// JsonError records err for the middleware and writes it as the response body
func JsonError(err HTTPError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetError(r.Context(), err)
		JSONWithStatus(err.HTTPCode(), err)(w, r)
	}
}

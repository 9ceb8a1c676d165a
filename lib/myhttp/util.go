package myhttp

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/myerrors"
)

type EmptyResponse struct{}

func HostnameWithScheme(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// IntPathParam parses the named mux path variable.
func IntPathParam(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, myerrors.NewInvalidInputErrorf("path parameter %s must be an integer, got %q", name, raw)
	}
	return value, nil
}

// IntQueryParam parses the named query parameter, falling back to defaultValue
// when the parameter is absent.
func IntQueryParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, myerrors.NewInvalidInputErrorf("query parameter %s must be an integer, got %q", name, raw)
	}
	return value, nil
}

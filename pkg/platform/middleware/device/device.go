// Package device derives a human-readable device description from the
// User-Agent so wallet unlock sessions can record where they were opened.
package device

import (
	"fmt"
	"net/http"

	"github.com/mssola/useragent"

	"custodia/pkg/requestcontext"
)

// Middleware parses the User-Agent header and stores a short device
// description ("Chrome on Linux") in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), Describe(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Describe renders a User-Agent string into a short description.
// Unknown or empty user agents come back as "unknown device".
func Describe(rawUA string) string {
	if rawUA == "" {
		return "unknown device"
	}
	ua := useragent.New(rawUA)
	name, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case name != "" && os != "":
		return fmt.Sprintf("%s on %s", name, os)
	case name != "":
		return name
	case os != "":
		return os
	default:
		return "unknown device"
	}
}

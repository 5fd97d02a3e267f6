package httpx

import (
	"errors"
	"net/http"
)

// ErrorMapping translates one domain error into a problem response.
type ErrorMapping struct {
	Err    error
	Status int
	Code   string
	Title  string
}

// RespondError writes the problem matching err. Errors without a mapping are
// reported as an opaque 500 so store failures never leak details.
func RespondError(w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			title := m.Title
			if title == "" {
				title = http.StatusText(m.Status)
			}
			WriteProblem(w, ProblemDetail{
				Title:  title,
				Status: m.Status,
				Code:   m.Code,
				Detail: m.Err.Error(),
			})
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

// IsMapped reports whether err matches one of the mappings.
func IsMapped(err error, mappings []ErrorMapping) bool {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			return true
		}
	}
	return false
}

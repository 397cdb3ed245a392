package api

import (
	"errors"
	"net/http"
)

// Describe turns an API call failure into the text shown to the user. The
// server's own message wins when there is one.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		switch code := apiErr.StatusCode; {
		case code == http.StatusUnauthorized:
			return "Session expired. Please login again."
		case code == http.StatusForbidden:
			return "Access denied"
		case code == http.StatusNotFound:
			return "Resource not found"
		case code == http.StatusUnprocessableEntity:
			return "Validation failed"
		case code == http.StatusTooManyRequests:
			return "Too many requests. Please try again later."
		case code >= http.StatusInternalServerError:
			return "Internal server error"
		default:
			return "Something went wrong"
		}
	}

	if errors.Is(err, ErrNetwork) {
		return "Network error. Please check your connection."
	}
	return "An unexpected error occurred"
}

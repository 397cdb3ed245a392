package cli

import (
	"errors"

	"github.com/dmitrijs2005/webtoz/internal/client/api"
)

// userError is a problem with what was typed; its text is shown as is.
type userError string

func (e userError) Error() string { return string(e) }

const (
	errNotLoggedIn      = userError("Please login first")
	errPasswordMismatch = userError("Passwords do not match")
	errNothingToUpdate  = userError("Nothing to update")
	errCancelled        = userError("Cancelled")
)

func usage(s string) error {
	return userError("Usage: " + s)
}

// describe renders any command error for the terminal.
func describe(err error) string {
	var ue userError
	if errors.As(err, &ue) {
		return string(ue)
	}
	return api.Describe(err)
}

// Package cli provides the interactive webtoz command-line client.
//
// It wires configuration, the local session store, the API client and the
// session manager, then runs a REPL. On start a stored session is
// re-validated with the server; when the server later rejects the token the
// REPL drops back to its logged-out prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

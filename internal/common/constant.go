// Package common contains shared constants and sentinel errors used across
// the webtoz server and client.
package common

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key, lower-cased)
// that carries the bearer credential.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only authorization scheme accepted by the server.
const BearerScheme = "Bearer"

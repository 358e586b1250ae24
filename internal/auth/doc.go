// Package auth provides the authentication and authorization primitives
// of the ERP backend.
//
// This package implements:
//   - signed access/refresh token issuance and verification (TokenService)
//   - the closed role and permission sets and the role to permission table
//   - permission queries used by the HTTP guards in the middleware package
//
// Nothing here performs I/O. HTTP concerns (token extraction, 401/403
// responses) live in the middleware package.
package auth

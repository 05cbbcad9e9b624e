// Package identity owns principals: the accounts that sessions are issued for.
//
// It provides the principal model, registration input, and a Store with
// Postgres and in-memory implementations. Credentials are stored only as
// password hashes produced by cmd/security/password.
package identity

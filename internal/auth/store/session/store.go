// Package session stores one row per logged-in device. Only SHA-256 hashes of refresh
// tokens are kept. Rotate is a compare-and-swap on (id, hash): of N concurrent rotations
// presenting the same hash, exactly one succeeds and the rest get sentinel.ErrStale.
package session

// Package testutil provides testing utilities and helpers for the
// authlimit library.
package testutil

// Package testutil provides common helpers for handler and integration tests.
package testutil

import "testing"

// Given, When, and Then name sequential phases of a scenario as subtests.
// They are plain t.Run wrappers; the value is the label discipline, not a
// framework.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

// Package testutil holds small helpers shared by package tests.
package testutil

// Ptr returns a pointer to v, for table fields such as a wanted *string
// result.
func Ptr[T any](v T) *T { return &v }

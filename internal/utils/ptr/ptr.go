// Package ptr holds pointer helpers for the optional fields of contract records.
package ptr

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}

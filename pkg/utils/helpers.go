// Package utils holds small helpers shared across packages.
package utils

import "strings"

// AreAddressesEqual compares two hex strings ignoring case.
func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// HasHexPrefix reports whether s starts with 0x or 0X.
func HasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func Map[A any, B any](coll []A, fn func(item A, index uint64) B) []B {
	out := make([]B, len(coll))
	for i, item := range coll {
		out[i] = fn(item, uint64(i))
	}
	return out
}

func Filter[A any](coll []A, criteria func(item A) bool) []A {
	out := make([]A, 0)
	for _, item := range coll {
		if criteria(item) {
			out = append(out, item)
		}
	}
	return out
}

func Find[A any](coll []A, criteria func(item A) bool) *A {
	for i := range coll {
		if criteria(coll[i]) {
			return &coll[i]
		}
	}
	return nil
}

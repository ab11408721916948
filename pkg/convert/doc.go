// Package convert provides some helpers for fast binary conversion of common go types.
//
// Conversion operations are essentially unsafe and avoid the use of memcpy().
package convert

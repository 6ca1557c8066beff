// Package textutil provides rune-aware text helpers and filename sanitization.
package textutil

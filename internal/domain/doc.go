// Package domain provides the shared types for iseven.
//
// This package contains type definitions only. Every other internal package
// may import domain; domain imports nothing internal.
//
// Key constraints:
//   - Targets are 32-bit unsigned; anything wider is rejected at the edge
//   - Verdict's zero value is Inconclusive
//   - All errors surfaced to callers are *Error carrying an ErrorCode
package domain

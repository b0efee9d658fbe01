// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrInviteExhausted indicates a code whose usage limit or
// expiry makes it unusable, while ErrInviteNotFound means the code
// does not exist at all; handlers collapse only the messages they
// want collapsed.
package repository

import "errors"

// ErrEmailExists is returned on a duplicate email within one
// principal namespace. Handlers should translate this into an HTTP
// 422 response with a field-level error.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInviteNotFound is returned when no invite carries the presented
// code.
var ErrInviteNotFound = errors.New("invite not found")

// ErrInviteExhausted is returned when an invite exists but can no
// longer be redeemed, because its usage limit has been reached or its
// expiry has passed. The two causes are not distinguished.
var ErrInviteExhausted = errors.New("invite no longer valid")

// ErrCodeExpired is returned when no verification code is pending or
// the stored expiry has passed.
var ErrCodeExpired = errors.New("verification code expired")

// ErrCodeInvalid is returned when the submitted verification code
// does not match the stored hash.
var ErrCodeInvalid = errors.New("verification code invalid")

// ErrAlreadyVerified is returned when a verification is attempted on
// a ninong whose email is already confirmed.
var ErrAlreadyVerified = errors.New("email already verified")

// Package validator checks request structs against their `validate` tags
// and reports failures as a field to message map keyed by JSON name.
//
// On top of the go-playground rules it registers otpcode (six digits),
// base32secret (A-Z and 2-7 only) and otpalgorithm (SHA1, SHA256, SHA512).
package validator

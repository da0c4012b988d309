// Package otp provides helpers for generating and validating one-time
// passwords (OTP), focused on TOTP (time-based OTP).
//
// It holds the algorithm policy (which HMAC variant requires which secret
// length), the Base32 secret codec, the HOTP/TOTP engine and the pairing
// helpers (otpauth:// URI and its QR matrix) used by authenticator apps.
package otp

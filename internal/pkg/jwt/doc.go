// Package jwt verifies the HS512 access tokens issued at sign-in and carries
// their claims through the request context. Generate exists for tests and
// local tooling; the security API only verifies.
package jwt

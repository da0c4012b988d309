// Package clock is the time source of the security engine.
//
// TOTP counters, heartbeat tickers and idle session checks read time through
// Clocker. Tests use Manual, which only moves when advanced.
package clock

// Package messaging publishes domain events to a message broker.
//
// The broker is chosen by driver name (see NewFromDriver). Supported brokers
// are NSQ, NATS, Kafka and Google Pub/Sub. Only publishing is exposed; the
// application never consumes its own events.
package messaging

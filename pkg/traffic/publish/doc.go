// Package publish builds and dispatches the one outbound message produced
// for every recorded exchange.
//
// # Message Shape
//
// The topic comes from configuration and the key is the record's creation
// time in RFC 3339 form, so consumers can order messages per partition. The
// body depends on the sink backend:
//
//	{"command":"log-http-traffic","args":{"locator":"http-traffic/5f0c....json"}}
//
// for sink-backed deployments (LocatorBody), or the full redacted dump when no
// sink is configured (InlineBody).
//
// # Dispatchers
//
//   - kafka: segmentio/kafka-go writer in async mode
//   - mqtt: eclipse/paho client, QoS from configuration
//   - log: writes the message to the structured log
//   - memory: keeps messages in process, for tests
//
// Dispatch never waits for broker acknowledgment. Delivery failures reported
// later by a transport are logged by the dispatcher.
package publish

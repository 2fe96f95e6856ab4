// Package infra contains technical adapters: solver backends, the MQTT
// publisher, metrics sinks and logging. These packages should depend only on
// the interfaces defined in the core packages.
package infra

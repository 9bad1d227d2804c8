package errors

import "fmt"

/*
ConfigError reports an invalid configuration value, such as an unknown
performance profile name or a threshold outside its allowed range.
*/
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

/*
TransportError reports an unreachable service, a TLS failure, or a network
timeout. Callers are expected to try the alternate transport when fallback
is enabled, otherwise proceed with no memories.
*/
type TransportError struct {
	Transport string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %v", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(transport string, err error) *TransportError {
	return &TransportError{Transport: transport, Err: err}
}

/*
ProtocolError reports malformed JSON or an unexpected response schema. The
offending message is dropped and the pipeline continues.
*/
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Detail)
}

func NewProtocolError(detail string) *ProtocolError {
	return &ProtocolError{Detail: detail}
}

/*
TimeoutError reports that a global or per-query deadline expired. The
orchestrator records a degradation sample and returns whatever is ready.
*/
type TimeoutError struct {
	Op      string
	Elapsed string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s after %s", e.Op, e.Elapsed)
}

package handlers

// Metadata key constants stamped on messages by the runtime.
// These keys are reserved and should not be used for custom metadata.
const (
	// MetadataKeyCorrelationID tracks related messages across services.
	MetadataKeyCorrelationID = "correlation_id"

	// MetadataKeyEvent carries the wire event name of the message.
	MetadataKeyEvent = "event"

	// MetadataKeyNamespace carries the channel namespace of the event.
	MetadataKeyNamespace = "event_namespace"

	// MetadataKeyEventSchema names the payload schema of the message.
	MetadataKeyEventSchema = "event_schema"

	// MetadataKeyAckFor names the event an acknowledgement answers.
	MetadataKeyAckFor = "ack_for"

	// MetadataKeyTraceID stores the distributed tracing ID.
	MetadataKeyTraceID = "trace_id"

	// MetadataKeySpanID stores the distributed tracing span ID.
	MetadataKeySpanID = "span_id"

	// MetadataKeyQueueDepth lets producers report the backlog depth of the
	// queue a message was taken from. Used for per-event backlog statistics.
	MetadataKeyQueueDepth = "asyncflow_queue_depth"

	// MetadataKeyEnqueuedAt is the unix-milli enqueue timestamp stamped by
	// producers, used to derive consumer lag.
	MetadataKeyEnqueuedAt = "asyncflow_enqueued_at"
)

package realtime

import "errors"

var (
	ErrInvalidTopic       = errors.New("realtime: topic needs a table and a user id")
	ErrMalformedEvent     = errors.New("realtime: malformed event")
	ErrChannelClosed      = errors.New("realtime: channel closed")
	ErrListenFailed       = errors.New("realtime: failed to listen")
	ErrSubscribeFailed    = errors.New("realtime: failed to subscribe")
	ErrIngestorClosed     = errors.New("realtime: ingestor closed")
	ErrAlreadyStarted     = errors.New("realtime: ingestor already started")
	ErrMissingDependency  = errors.New("realtime: channel, hydrator and sink are required")
	ErrInvalidKafkaConfig = errors.New("realtime: kafka brokers and topic are required")
)

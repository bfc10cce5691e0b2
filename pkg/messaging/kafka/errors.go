package kafka

import "errors"

var (
	// ErrPublishFailed indicates message publication failed.
	ErrPublishFailed = errors.New("failed to publish message to kafka")

	// ErrProducerClosed indicates the producer has been closed.
	ErrProducerClosed = errors.New("kafka producer is closed")
)

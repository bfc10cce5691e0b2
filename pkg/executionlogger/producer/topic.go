package producer

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
)

// TopicProvisioner ensures the destination topic exists before the
// Producer's first Connect, built the same way
// pkg/messaging/kafka.kafkaBuilder wraps sarama.ClusterAdmin behind a
// small interface, but narrowed to the single "ensure exists"
// operation this pipeline needs.
type TopicProvisioner struct {
	admin sarama.ClusterAdmin
}

// NewTopicProvisioner opens a sarama cluster-admin connection distinct
// from the producer's own segmentio/kafka-go client.
func NewTopicProvisioner(brokers []string) (*TopicProvisioner, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0

	admin, err := sarama.NewClusterAdmin(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("producer: opening cluster admin: %w", err)
	}
	return &TopicProvisioner{admin: admin}, nil
}

// EnsureTopic creates topic with a single partition and replication
// factor 1 if it does not already exist. A pre-existing topic is not an
// error; any other failure (missing permission, broker unreachable) is
// returned so the caller can classify and log it without blocking the
// producer's own connect attempt.
func (t *TopicProvisioner) EnsureTopic(topic string) error {
	err := t.admin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: 1,
	}, false)
	if err == nil {
		return nil
	}

	var topicErr *sarama.TopicError
	if errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists {
		return nil
	}
	return fmt.Errorf("producer: ensuring topic %q: %w", topic, err)
}

// Close releases the cluster-admin connection.
func (t *TopicProvisioner) Close() error {
	return t.admin.Close()
}

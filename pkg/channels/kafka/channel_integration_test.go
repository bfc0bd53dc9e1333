//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupKafka(t *testing.T) []string {
	t.Helper()

	ctx := context.Background()

	container, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("sudao-test"),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, container.Terminate(context.Background()))
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	return brokers
}

func createTopic(t *testing.T, brokers []string, topic string) {
	t.Helper()

	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0

	admin, err := sarama.NewClusterAdmin(brokers, config)
	require.NoError(t, err)

	defer admin.Close()

	require.NoError(t, admin.CreateTopic(topic, &sarama.TopicDetail{NumPartitions: 1, ReplicationFactor: 1}, false))
}

func TestCreateChannel_RoundTrip(t *testing.T) {
	brokers := setupKafka(t)
	topic := "sudao.events.test"

	createTopic(t, brokers, topic)

	publisher, subscriber, err := CreateChannel(watermill.NopLogger{}, brokers, "sudao-test")
	require.NoError(t, err)

	defer publisher.Close()
	defer subscriber.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	messages, err := subscriber.Subscribe(ctx, topic)
	require.NoError(t, err)

	sent := message.NewMessage(watermill.NewUUID(), []byte(`{"run_id":"run-1"}`))
	require.NoError(t, publisher.Publish(topic, sent))

	select {
	case got := <-messages:
		assert.Equal(t, sent.UUID, got.UUID)
		assert.JSONEq(t, `{"run_id":"run-1"}`, string(got.Payload))
		got.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

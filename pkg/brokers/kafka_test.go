package brokers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewKafka(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Brokers: []string{"localhost:9092"}, Topic: "commands"}, false},
		{"missing topic", Config{Brokers: []string{"localhost:9092"}}, true},
		{"missing brokers", Config{Topic: "commands"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewKafka(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewKafka() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && k.config.ConsumerGroup != DefaultConsumerGroup {
				t.Errorf("ConsumerGroup = %q, want %q", k.config.ConsumerGroup, DefaultConsumerGroup)
			}
		})
	}
}

func TestNewDispatchesKafka(t *testing.T) {
	b, err := New(Config{Type: "kafka", Brokers: []string{"localhost:9092", "localhost:9093"}, Topic: "exports", ConsumerGroup: "viewers"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.GetBrokerType() != "kafka" {
		t.Errorf("GetBrokerType() = %q, want kafka", b.GetBrokerType())
	}
	if got := b.(*Kafka).config.ConsumerGroup; got != "viewers" {
		t.Errorf("explicit consumer group overwritten: %q", got)
	}
}

func TestKafkaNotConnected(t *testing.T) {
	k, err := NewKafka(Config{Brokers: []string{"localhost:9092"}, Topic: "commands"})
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}
	ctx := context.Background()

	if err := k.Send(ctx, []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send error = %v, want ErrNotConnected", err)
	}
	if _, err := k.Receive(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Receive error = %v, want ErrNotConnected", err)
	}
	if err := k.Ack(ctx); !errors.Is(err, ErrNothingToAck) {
		t.Errorf("Ack error = %v, want ErrNothingToAck", err)
	}
	if err := k.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// TestKafkaIntegration требует Kafka на localhost:9092 с topic tdtpview-test
func TestKafkaIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Kafka integration test in short mode")
	}

	k, err := NewKafka(Config{Brokers: []string{"localhost:9092"}, Topic: "tdtpview-test", ConsumerGroup: "tdtpview-test"})
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := k.Connect(ctx); err != nil {
		t.Skipf("Skipping test: Kafka not available: %v", err)
	}
	defer k.Close()

	msg := []byte(`{"action":"set_dataset","name":"widgets"}`)
	if err := k.Send(ctx, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := k.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != string(msg) {
		t.Errorf("got %s, want %s", got, msg)
	}
	if err := k.Ack(ctx); err != nil {
		t.Errorf("Ack: %v", err)
	}
}

package brokers

import (
	"context"
	"testing"
	"time"
)

func TestNewUnsupportedType(t *testing.T) {
	for _, typ := range []string{"", "msmq", "nats"} {
		if _, err := New(Config{Type: typ}); err == nil {
			t.Errorf("New(%q) expected error", typ)
		}
	}
}

// TestRabbitMQDefaults проверяет значения по умолчанию
func TestRabbitMQDefaults(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantPort int
	}{
		{"plain", Config{Queue: "q"}, 5672},
		{"tls", Config{Queue: "q", UseTLS: true}, 5671},
		{"explicit", Config{Queue: "q", Port: 15672}, 15672},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRabbitMQ(tt.cfg)
			if err != nil {
				t.Fatalf("NewRabbitMQ: %v", err)
			}
			if r.config.Host != "localhost" {
				t.Errorf("Host = %q, want localhost", r.config.Host)
			}
			if r.config.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", r.config.Port, tt.wantPort)
			}
			if r.config.VHost != "/" {
				t.Errorf("VHost = %q, want /", r.config.VHost)
			}
		})
	}

	if _, err := NewRabbitMQ(Config{}); err == nil {
		t.Error("expected error without queue")
	}
}

// TestRabbitMQNotConnected проверяет операции без подключения
func TestRabbitMQNotConnected(t *testing.T) {
	r, err := NewRabbitMQ(Config{Queue: "q"})
	if err != nil {
		t.Fatalf("NewRabbitMQ: %v", err)
	}
	ctx := context.Background()

	if err := r.Send(ctx, []byte("{}")); err == nil {
		t.Error("Send: expected error")
	}
	if _, err := r.Receive(ctx); err == nil {
		t.Error("Receive: expected error")
	}
	if err := r.Ack(ctx); err == nil {
		t.Error("Ack: expected error")
	}
	if err := r.Ping(ctx); err == nil {
		t.Error("Ping: expected error")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// TestRabbitMQIntegration требует RabbitMQ на localhost:5672 (guest/guest)
func TestRabbitMQIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping RabbitMQ integration test in short mode")
	}

	r, err := NewRabbitMQ(Config{User: "guest", Password: "guest", Queue: "tdtpview-test", AutoDelete: true})
	if err != nil {
		t.Fatalf("NewRabbitMQ: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.Connect(ctx); err != nil {
		t.Skipf("Skipping test: RabbitMQ server not available: %v", err)
	}
	defer r.Close()

	msg := []byte(`{"action":"reload"}`)
	if err := r.Send(ctx, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var got []byte
	for got == nil {
		got, err = r.Receive(ctx)
		if err != nil && err != ErrNoMessage {
			t.Fatalf("Receive: %v", err)
		}
	}
	if string(got) != string(msg) {
		t.Errorf("got %s, want %s", got, msg)
	}
	if err := r.Ack(ctx); err != nil {
		t.Errorf("Ack: %v", err)
	}
}

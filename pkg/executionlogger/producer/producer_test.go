package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
)

func validConfig() Config {
	return Config{
		Brokers:  []string{"127.0.0.1:9092"},
		ClientID: "execution-logger",
		Topic:    "n8n.execution.events",
		Timeouts: Timeouts{
			Connect:    time.Second,
			Send:       time.Second,
			Disconnect: time.Second,
		},
	}
}

func TestNew_RejectsMissingBrokers(t *testing.T) {
	cfg := validConfig()
	cfg.Brokers = nil
	if _, err := New(cfg); !errors.Is(err, ErrNoBrokers) {
		t.Errorf("err = %v, want ErrNoBrokers", err)
	}
}

func TestNew_RejectsEmptyTopic(t *testing.T) {
	cfg := validConfig()
	cfg.Topic = ""
	if _, err := New(cfg); !errors.Is(err, ErrEmptyTopic) {
		t.Errorf("err = %v, want ErrEmptyTopic", err)
	}
}

func TestNew_RejectsUnsupportedMechanism(t *testing.T) {
	cfg := validConfig()
	cfg.Auth = &Auth{Username: "u", Password: "p", Mechanism: "md5"}
	if _, err := New(cfg); !errors.Is(err, ErrUnsupportedMechanism) {
		t.Errorf("err = %v, want ErrUnsupportedMechanism", err)
	}
}

func TestNew_AcceptsKnownMechanisms(t *testing.T) {
	for _, mech := range []AuthMechanism{AuthPlain, AuthScramSHA256, AuthScramSHA512, ""} {
		cfg := validConfig()
		cfg.Auth = &Auth{Username: "u", Password: "p", Mechanism: mech}
		if _, err := New(cfg); err != nil {
			t.Errorf("mechanism %q: err = %v, want nil", mech, err)
		}
	}
}

func TestProducer_IsConnectedFalseBeforeConnect(t *testing.T) {
	p, err := New(validConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.IsConnected() {
		t.Error("expected not connected before Connect")
	}
}

func TestProducer_SendBatch_EmptyIsNoop(t *testing.T) {
	p, _ := New(validConfig())
	if err := p.SendBatch(context.Background(), nil); err != nil {
		t.Errorf("SendBatch(nil) err = %v, want nil", err)
	}
}

func TestProducer_SendBeforeConnectFails(t *testing.T) {
	p, _ := New(validConfig())
	err := p.Send(context.Background(), record.ExecutionRecord{MessageID: "m1"})
	if err == nil {
		t.Fatal("expected error sending before connect")
	}
}

func TestProducer_DisconnectBeforeConnectIsNoop(t *testing.T) {
	p, _ := New(validConfig())
	if err := p.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect before Connect err = %v, want nil", err)
	}
}

// Connect against an address nothing listens on must fail fast with a
// categorized connection error rather than hang past Timeouts.Connect.
func TestProducer_ConnectFailsAgainstUnreachableBroker(t *testing.T) {
	cfg := validConfig()
	cfg.Brokers = []string{"127.0.0.1:1"}
	cfg.Timeouts.Connect = 500 * time.Millisecond
	p, _ := New(cfg)

	err := p.Connect(context.Background())
	if err == nil {
		t.Fatal("expected connect failure against unreachable broker")
	}
	if p.IsConnected() {
		t.Error("producer reported connected after failed Connect")
	}
}

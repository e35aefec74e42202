// Package telemetry publishes best-effort agent state transitions to
// an external sink. Telemetry is never part of the planning or
// collision-freedom contract: a publish failure is logged and
// swallowed, never propagated to the coordinator.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/elektrokombinacija/realtimemapf/internal/obslog"
)

// Event is one agent state transition, published as a JSON payload.
type Event struct {
	AgentID   int     `json:"agent_id"`
	Status    string  `json:"status"`
	Location  int     `json:"location"`
	Timestamp float64 `json:"timestamp"`
}

// Sink publishes agent transition events. Coordinator holds one
// optional Sink and never blocks or fails a tick on a Publish error.
type Sink interface {
	Publish(Event)
}

// MQTTSink publishes events as JSON to a fixed MQTT topic. It is the
// sink wired by --mqttBroker; when unset, the coordinator runs with a
// nil Sink and telemetry is a complete no-op.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

// NewMQTTSink connects to broker and returns a Sink publishing to
// topic. Connection errors are returned so the CLI can decide whether
// to proceed without telemetry rather than block startup.
func NewMQTTSink(broker, clientID, topic string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		obslog.Log.Warnf("telemetry: mqtt connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connecting to %s: %w", broker, token.Error())
	}

	return &MQTTSink{client: client, topic: topic}, nil
}

// Publish best-effort publishes ev as JSON. Errors are logged at warn
// and otherwise ignored, per §7's telemetry error-handling rule.
func (s *MQTTSink) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		obslog.Log.Warnf("telemetry: marshaling event for agent %d: %v", ev.AgentID, err)
		return
	}
	token := s.client.Publish(s.topic, 0, false, payload)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		obslog.Log.Warnf("telemetry: publishing event for agent %d: %v", ev.AgentID, token.Error())
	}
}

// Close disconnects the underlying MQTT client.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}

package mesh

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPublishPrefix is used when no prefix is configured.
const DefaultPublishPrefix = "tractslice"

// Publisher publishes run summaries and flagged pairs to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	timeout       time.Duration
	last          *Summary
	mu            sync.RWMutex
}

// NewPublisher creates a new report publisher.
// If client is nil, publishing is disabled (for testing)
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true, // Retain the latest run for late subscribers
		timeout:       2 * time.Second,
	}
}

// SummaryTopic returns the topic the summary is published to.
func (p *Publisher) SummaryTopic() string {
	return fmt.Sprintf("%s/summary", p.publishPrefix)
}

// IssuesTopic returns the topic flagged pairs are published to.
func (p *Publisher) IssuesTopic() string {
	return fmt.Sprintf("%s/issues", p.publishPrefix)
}

// PublishReport publishes the summary and flagged pairs of r.
func (p *Publisher) PublishReport(r *Report) error {
	if err := p.PublishSummary(r.Summary); err != nil {
		return err
	}
	return p.PublishIssues(r.FlaggedPairs())
}

// PublishSummary publishes a run summary.
func (p *Publisher) PublishSummary(s Summary) error {
	if err := p.publish(p.SummaryTopic(), s); err != nil {
		log.Printf("[MQTT] Error publishing summary: %v", err)
		return err
	}
	p.mu.Lock()
	p.last = &s
	p.mu.Unlock()

	log.Printf("[MQTT] Published summary: %d sections, %d skipped, %d issues", s.Sections, s.Skipped, s.Issues)
	return nil
}

// PublishIssues publishes the flagged pairs. An empty list is published
// too so retained state is cleared after a clean run.
func (p *Publisher) PublishIssues(pairs []PairReport) error {
	if pairs == nil {
		pairs = []PairReport{}
	}
	message := map[string]interface{}{
		"pairs":     pairs,
		"timestamp": time.Now().Unix(),
	}
	if err := p.publish(p.IssuesTopic(), message); err != nil {
		log.Printf("[MQTT] Error publishing issues: %v", err)
		return err
	}
	return nil
}

func (p *Publisher) publish(topic string, v interface{}) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publishing to %s: timeout after %v", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// LastSummary returns the last successfully published summary
func (p *Publisher) LastSummary() (Summary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Summary{}, false
	}
	return *p.last, true
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}

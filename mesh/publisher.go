package mesh

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher publishes solved scanner reports to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	last          *Result
	mu            sync.RWMutex
}

// NewPublisher creates a result publisher. MQTT_PUBLISH_PREFIX overrides
// prefix; an empty prefix falls back to "beaconmesh".
// If client is nil, publishing is disabled (for testing)
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = "beaconmesh"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // QoS 0 (fire and forget)
		retain:        true, // Retain so late subscribers see the latest solve
	}
}

// Prefix returns the topic prefix in use
func (p *Publisher) Prefix() string {
	return p.publishPrefix
}

// beaconSummary is the payload of the {prefix}/beacons topic
type beaconSummary struct {
	RunID        string    `json:"runId"`
	BeaconCount  int       `json:"beaconCount"`
	MaxManhattan int       `json:"maxManhattan"`
	CompletedAt  time.Time `json:"completedAt"`
}

// PublishResult publishes the full result to {prefix}/result, the headline
// numbers to {prefix}/beacons and each scanner to {prefix}/scanner/{slug}.
func (p *Publisher) PublishResult(result *Result) error {
	if result == nil {
		return fmt.Errorf("nil result")
	}
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	if err := p.publishJSON(p.topic("result"), result); err != nil {
		return err
	}

	summary := beaconSummary{
		RunID:        result.RunID,
		BeaconCount:  result.BeaconCount,
		MaxManhattan: result.MaxManhattan,
		CompletedAt:  result.CompletedAt,
	}
	if err := p.publishJSON(p.topic("beacons"), summary); err != nil {
		return err
	}

	labels := make([]string, len(result.Scanners))
	for i, sp := range result.Scanners {
		labels[i] = sp.Label
	}
	slugs := UniqueTopicSlugs(labels)
	for i, sp := range result.Scanners {
		if err := p.publishJSON(p.topic("scanner/"+slugs[i]), sp); err != nil {
			return err
		}
	}

	log.Printf("Published result %s: %d beacons, max distance %d, %d scanners",
		result.RunID, result.BeaconCount, result.MaxManhattan, len(result.Scanners))
	return nil
}

// PublishFailure publishes a solve error to {prefix}/error (never retained)
func (p *Publisher) PublishFailure(source string, solveErr error) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"source":    source,
		"error":     solveErr.Error(),
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling failure: %w", err)
	}

	topic := p.topic("error")
	token := p.client.Publish(topic, p.qos, false, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

func (p *Publisher) topic(suffix string) string {
	return fmt.Sprintf("%s/%s", p.publishPrefix, suffix)
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// LastResult returns the most recently published result, or nil
func (p *Publisher) LastResult() *Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
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

// TopicSlug turns a scanner label into a single MQTT topic level:
// "--- scanner 12 ---" becomes "scanner-12". Distinct labels can share a
// slug; see UniqueTopicSlugs.
func TopicSlug(label string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "unnamed"
	}
	return slug
}

// UniqueTopicSlugs slugs labels in order. A slug already taken by an earlier
// label gets the first free "-2", "-3", ... suffix, so "--- scanner 1 ---"
// and "Scanner-1" publish to scanner-1 and scanner-1-2.
func UniqueTopicSlugs(labels []string) []string {
	slugs := make([]string, len(labels))
	taken := make(map[string]bool, len(labels))
	for i, label := range labels {
		base := TopicSlug(label)
		slug := base
		for n := 2; taken[slug]; n++ {
			slug = fmt.Sprintf("%s-%d", base, n)
		}
		taken[slug] = true
		slugs[i] = slug
	}
	return slugs
}

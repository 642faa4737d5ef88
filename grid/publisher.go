package grid

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher publishes reconstruction results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	latest        map[string]*FrameResult
	mu            sync.RWMutex
}

// FrameError is published when a frame could not be reconstructed
type FrameError struct {
	Camera    string `json:"camera"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}

// NewPublisher creates a result publisher. The topic prefix comes from
// MQTT_PUBLISH_PREFIX, then prefix, then "boardgrid".
// If client is nil, publishing is disabled (for testing).
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = "boardgrid"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true, // late subscribers get the current board
		latest:        make(map[string]*FrameResult),
	}
}

// PublishFrame publishes corners, cells and the full result of one frame:
//
//	{prefix}/{camera}/corners
//	{prefix}/{camera}/cells
//	{prefix}/{camera}/frame
func (p *Publisher) PublishFrame(camera string, fr *FrameResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.latest[camera] = fr
	p.mu.Unlock()

	parts := []struct {
		suffix string
		value  interface{}
	}{
		{"corners", fr.Corners},
		{"cells", fr.Cells},
		{"frame", fr},
	}
	for _, part := range parts {
		if err := p.publishJSON(fmt.Sprintf("%s/%s/%s", p.publishPrefix, camera, part.suffix), part.value); err != nil {
			log.Printf("[MQTT] error publishing %s for %s: %v", part.suffix, camera, err)
			return err
		}
	}

	log.Printf("[MQTT] published frame for %s: %d cells, A=%v C=%v",
		camera, len(fr.Cells), fr.Corners.A, fr.Corners.C)
	return nil
}

// PublishError reports a failed frame on {prefix}/{camera}/error
func (p *Publisher) PublishError(camera string, frameErr error) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	msg := FrameError{
		Camera:    camera,
		Error:     frameErr.Error(),
		Timestamp: time.Now().Unix(),
	}
	return p.publishJSON(fmt.Sprintf("%s/%s/error", p.publishPrefix, camera), msg)
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// GetLatest returns the last frame published for a camera
func (p *Publisher) GetLatest(camera string) (*FrameResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	fr, ok := p.latest[camera]
	return fr, ok
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

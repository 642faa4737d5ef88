package grid

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DetectionHandler is called for every detection payload received.
// err is set when the payload could not be decoded; dets is nil then.
type DetectionHandler func(cameraID string, dets []Detection, err error)

// MQTTClient manages the MQTT connection and the per-camera detection subscriptions
type MQTTClient struct {
	client      mqtt.Client
	config      *Config
	handler     DetectionHandler
	isConnected bool
	mu          sync.RWMutex
}

// InitMQTT creates the MQTT client from the configuration and starts connecting
// in the background. MQTT_BROKER, MQTT_CLIENT_ID, MQTT_USERNAME and
// MQTT_PASSWORD override the config file. Returns nil, nil when no broker is set.
func InitMQTT(config *Config, handler DetectionHandler) (*MQTTClient, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil {
		broker = config.MQTT.Broker
	}

	if broker == "" {
		log.Println("[MQTT] disabled: MQTT_BROKER not set")
		return nil, nil
	}

	if config == nil || len(config.Cameras) == 0 {
		return nil, fmt.Errorf("MQTT enabled but no camera configuration provided")
	}

	client := &MQTTClient{
		config:  config,
		handler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = config.MQTT.ClientID
	}
	if clientID == "" {
		clientID = "boardgrid"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // keep subscriptions across reconnects
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("[MQTT] connecting to broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] connected to broker")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] connection timeout")
		}

		log.Printf("[MQTT] retrying connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to every configured camera topic
func (c *MQTTClient) onConnect(client mqtt.Client) {
	log.Println("[MQTT] connected, subscribing to camera topics...")
	c.setConnected(true)

	for _, cam := range c.config.Cameras {
		if cam.Topic == "" {
			log.Printf("[MQTT] warning: camera %s has no topic configured", cam.ID)
			continue
		}

		token := client.Subscribe(cam.Topic, 0, c.createMessageHandler(cam.ID))
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("[MQTT] error subscribing to %s: %v", cam.Topic, token.Error())
		} else {
			log.Printf("[MQTT] subscribed to %s for camera %s", cam.Topic, cam.ID)
		}
	}
}

// onConnectionLost is called when the connection drops; auto-reconnect will retry
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("[MQTT] reconnecting...")
}

// createMessageHandler decodes detection payloads for one camera
func (c *MQTTClient) createMessageHandler(cameraID string) mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		log.Printf("[MQTT] received detections for %s (topic: %s, size: %d bytes)",
			cameraID, msg.Topic(), len(payload))

		dets, err := ParseDetectionsJSON(payload)
		if c.handler == nil {
			return
		}
		if err != nil {
			c.handler(cameraID, nil, fmt.Errorf("decoding detections: %w", err))
			return
		}
		c.handler(cameraID, dets, nil)
	}
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] disconnecting from broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetCameraByTopic returns the camera ID subscribed to the given topic
func (c *MQTTClient) GetCameraByTopic(topic string) (string, bool) {
	for _, cam := range c.config.Cameras {
		if cam.Topic == topic {
			return cam.ID, true
		}
	}
	return "", false
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

package mesh

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NewMQTTClient builds a paho client from cfg. Env overrides should be
// applied to cfg beforehand (Config.ApplyEnv).
func NewMQTTClient(cfg MQTTConfig) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("%w: mqtt.broker is required", ErrInput)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultPublishPrefix
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(false) // one-shot publish per run
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v", err)
	})

	return mqtt.NewClient(opts), nil
}

// ConnectWithRetry connects client, retrying with exponential backoff up
// to attempts times.
func ConnectWithRetry(client mqtt.Client, attempts int, timeout time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	retryDelay := 500 * time.Millisecond
	maxRetryDelay := 10 * time.Second

	var lastErr error
	for i := 0; i < attempts; i++ {
		log.Println("[MQTT] Connecting to broker...")
		token := client.Connect()
		if token.WaitTimeout(timeout) {
			if token.Error() == nil {
				log.Println("[MQTT] Connected to broker")
				return nil
			}
			lastErr = token.Error()
			log.Printf("[MQTT] Connection failed: %v", lastErr)
		} else {
			lastErr = fmt.Errorf("connection timeout after %v", timeout)
			log.Println("[MQTT] Connection timeout")
		}

		if i == attempts-1 {
			break
		}
		log.Printf("[MQTT] Retrying connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
	return fmt.Errorf("connecting to MQTT broker: %w", lastErr)
}

// PublishResult connects, publishes the report and disconnects.
func PublishResult(client mqtt.Client, prefix string, r *Report) error {
	if err := ConnectWithRetry(client, 3, 10*time.Second); err != nil {
		return err
	}
	defer func() {
		log.Println("[MQTT] Disconnecting from broker...")
		client.Disconnect(250) // 250ms quiesce time
	}()
	return NewPublisher(client, prefix).PublishReport(r)
}

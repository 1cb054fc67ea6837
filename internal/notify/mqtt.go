// Package notify publishes gateway status and zone readings to an MQTT broker.
//
// Topics, relative to the configured prefix:
//
//	<prefix>/gateway/status                  retained gateway status
//	<prefix>/<systemId>/status               retained system mode and faults
//	<prefix>/<systemId>/<zoneId>/state       retained zone reading
package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"evohome_gateway/internal/config"
	"evohome_gateway/internal/logger"
	"evohome_gateway/internal/models"
	"evohome_gateway/internal/service"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second
	maxQoS            = 2
)

// publisher is the part of pahomqtt.Client the observer uses.
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// MQTTObserver implements service.Observer by publishing retained JSON messages.
type MQTTObserver struct {
	client publisher
	prefix string
	qos    byte
	log    *logger.Logger

	disconnect func()
}

var _ service.Observer = (*MQTTObserver)(nil)

// Connect dials the broker and returns an observer bound to it. The broker marks the
// gateway offline through the last will if the process dies.
func Connect(cfg config.MQTTConfig, log *logger.Logger) (*MQTTObserver, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}
	if log == nil {
		log = logger.Nop()
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(statusTopic(cfg.TopicPrefix), offlinePayload("unexpected_disconnect"), byte(cfg.QoS), true)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warnw("mqtt_connection_lost", "err", err)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	o := newObserver(client, cfg.TopicPrefix, byte(cfg.QoS), log)
	o.disconnect = func() { client.Disconnect(disconnectQuiesce) }
	log.Infow("mqtt_connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return o, nil
}

func newObserver(client publisher, prefix string, qos byte, log *logger.Logger) *MQTTObserver {
	if log == nil {
		log = logger.Nop()
	}
	return &MQTTObserver{client: client, prefix: prefix, qos: qos, log: log.Named("mqtt")}
}

// GatewayStatusChanged publishes the new gateway status.
func (o *MQTTObserver) GatewayStatusChanged(s models.GatewayStatus) {
	if err := o.publishJSON(statusTopic(o.prefix), statusPayload{
		State:     s.State,
		Detail:    s.Detail,
		Message:   s.Message,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		o.log.Warnw("mqtt_publish_failed", "topic", statusTopic(o.prefix), "err", err)
	}
}

// SnapshotUpdated publishes the status of every system and zone that has one.
func (o *MQTTObserver) SnapshotUpdated(entries []models.CacheEntry) {
	for _, e := range entries {
		if e.Status == nil {
			continue
		}
		sysTopic := systemTopic(o.prefix, e.System.ID) + "/status"
		if err := o.publishJSON(sysTopic, systemPayload{
			Mode:         e.Status.Mode.Mode,
			IsPermanent:  e.Status.Mode.IsPermanent,
			ActiveFaults: e.Status.ActiveFaults,
		}); err != nil {
			o.log.Warnw("mqtt_publish_failed", "topic", sysTopic, "err", err)
			return
		}
		for _, z := range e.Status.Zones {
			topic := zoneTopic(o.prefix, e.System.ID, z.ZoneID)
			if err := o.publishJSON(topic, z); err != nil {
				o.log.Warnw("mqtt_publish_failed", "topic", topic, "err", err)
				return
			}
		}
	}
}

// Close publishes a graceful offline status and disconnects.
func (o *MQTTObserver) Close() {
	if o.client.IsConnected() {
		if err := o.publish(statusTopic(o.prefix), []byte(offlinePayload("shutdown"))); err != nil {
			o.log.Warnw("mqtt_publish_failed", "topic", statusTopic(o.prefix), "err", err)
		}
	}
	if o.disconnect != nil {
		o.disconnect()
	}
}

func (o *MQTTObserver) publishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPublishFailed, err)
	}
	return o.publish(topic, b)
}

func (o *MQTTObserver) publish(topic string, payload []byte) error {
	if !o.client.IsConnected() {
		return ErrNotConnected
	}
	token := o.client.Publish(topic, o.qos, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

type statusPayload struct {
	State     models.GatewayState `json:"state"`
	Detail    models.StatusDetail `json:"detail"`
	Message   string              `json:"message,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

type systemPayload struct {
	Mode         string   `json:"mode"`
	IsPermanent  bool     `json:"is_permanent"`
	ActiveFaults []string `json:"active_faults,omitempty"`
}

func offlinePayload(reason string) string {
	return fmt.Sprintf(`{"state":%q,"detail":%q,"message":%q}`, models.StateOffline, models.DetailNone, reason)
}

func statusTopic(prefix string) string {
	return prefix + "/gateway/status"
}

func systemTopic(prefix string, systemID int) string {
	return prefix + "/" + strconv.Itoa(systemID)
}

func zoneTopic(prefix string, systemID, zoneID int) string {
	return systemTopic(prefix, systemID) + "/" + strconv.Itoa(zoneID) + "/state"
}

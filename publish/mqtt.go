package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/task"
	"github.com/angas/dayahead-go/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// MQTTPublisher pushes price series to a broker as retained messages, e.g. for Home Assistant.
type MQTTPublisher struct {
	client     mqtt.Client
	logger     *slog.Logger
	topic      string
	market     string
	resolution int
	currency   string
	now        func() time.Time
}

func NewMQTTPublisher(cnfg config.AppConfigMqtt, provider types.MarketPriceProvider) *MQTTPublisher {
	logger := slog.Default().With("module", "mqtt")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cnfg.Host, cnfg.Port))
	opts.SetClientID(cnfg.GetClientId())
	opts.SetUsername(cnfg.Username)
	opts.SetPassword(cnfg.Password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqtt.CRITICAL = newMqttLogger(logger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(logger, slog.LevelError)
	mqtt.WARN = newMqttLogger(logger, slog.LevelWarn)

	return &MQTTPublisher{
		client:     mqtt.NewClient(opts),
		logger:     logger,
		topic:      cnfg.GetTopic(),
		market:     provider.Market(),
		resolution: provider.Resolution(),
		currency:   provider.Currency(),
		now:        time.Now,
	}
}

func (p *MQTTPublisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *MQTTPublisher) Disconnect() {
	p.client.Disconnect(250)
}

func (p *MQTTPublisher) PricesTopic() string {
	return fmt.Sprintf("%s/%s/prices", p.topic, p.market)
}

func (p *MQTTPublisher) CurrentTopic() string {
	return fmt.Sprintf("%s/%s/current", p.topic, p.market)
}

// Publish is a task.PriceListener.
func (p *MQTTPublisher) Publish(series []types.PriceInterval) {
	if !p.client.IsConnectionOpen() {
		p.logger.Warn("MQTT not connected, skipping publish")
		return
	}

	payload, err := json.Marshal(p.seriesPayload(series))
	if err != nil {
		p.logger.Error("failed to marshal prices", slog.Any("error", err))
		return
	}
	p.publish(p.PricesTopic(), payload)

	if current, ok := task.CurrentInterval(series, p.now()); ok {
		payload, err := json.Marshal(types.NewPricePayload(current))
		if err != nil {
			p.logger.Error("failed to marshal current price", slog.Any("error", err))
			return
		}
		p.publish(p.CurrentTopic(), payload)
	}
}

func (p *MQTTPublisher) publish(topic string, payload []byte) {
	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Warn("MQTT publish timed out", slog.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Error("MQTT publish failed", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	p.logger.Debug("published", slog.String("topic", topic), slog.Int("bytes", len(payload)))
}

func (p *MQTTPublisher) seriesPayload(series []types.PriceInterval) types.SeriesPayload {
	return types.NewSeriesPayload(p.market, p.resolution, p.currency, series)
}

package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/comalice/avssm/internal/primitives"
)

var ErrNotConnected = errors.New("mqtt publisher not connected")

// MQTTPublisher publishes every transition record as JSON to
// <prefix>/<peer>/<handle>/transition.
type MQTTPublisher struct {
	cfg    primitives.MQTTConfig
	cliCfg autopaho.ClientConfig
	conn   *autopaho.ConnectionManager
	logger *slog.Logger
}

// NewMQTTPublisher prepares a publisher for cfg. Call Open to connect.
func NewMQTTPublisher(cfg primitives.MQTTConfig, logger *slog.Logger) (*MQTTPublisher, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("mqtt url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &MQTTPublisher{cfg: cfg, logger: logger}
	p.cliCfg = autopaho.ClientConfig{
		BrokerUrls: []*url.URL{u},
		KeepAlive:  cfg.KeepAlive,
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			logger.Info("mqtt connection up", "broker", u.Host)
		},
		OnConnectError: func(err error) {
			logger.Warn("mqtt connect attempt failed", "broker", u.Host, "err", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
			OnClientError: func(err error) {
				logger.Error("mqtt client error", "err", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					logger.Warn("mqtt server requested disconnect", "reason", d.Properties.ReasonString)
				} else {
					logger.Warn("mqtt server requested disconnect", "code", d.ReasonCode)
				}
			},
		},
	}
	return p, nil
}

// Open connects and waits for the first connection to come up.
func (p *MQTTPublisher) Open(ctx context.Context) error {
	conn, err := autopaho.NewConnection(ctx, p.cliCfg)
	if err != nil {
		return err
	}
	if err := conn.AwaitConnection(ctx); err != nil {
		return err
	}
	p.conn = conn
	return nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, rec primitives.TransitionRecord) error {
	if p.conn == nil {
		return ErrNotConnected
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	_, err = p.conn.Publish(ctx, &paho.Publish{
		QoS:     p.cfg.QoS,
		Topic:   TransitionTopic(p.cfg.TopicPrefix, rec),
		Payload: payload,
	})
	return err
}

func (p *MQTTPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Disconnect(context.Background())
}

// TransitionTopic is the topic rec is published on. The peer address is
// written without separators so it forms a single topic level.
func TransitionTopic(prefix string, rec primitives.TransitionRecord) string {
	peer := strings.ReplaceAll(rec.Peer.String(), ":", "")
	return fmt.Sprintf("%s/%s/%02x/transition", strings.TrimSuffix(prefix, "/"), peer, rec.Handle)
}

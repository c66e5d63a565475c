package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/faeln1/clan-notifier/internal/domain/notification"
	"github.com/gorilla/websocket"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var ErrFeedDisabled = errors.New("notification feed url not configured")

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Handler receives the current notification list every time the provider pushes an update.
type Handler func(ctx context.Context, batch []notification.Notification)

// Client assina o feed em tempo real do provedor de notificações.
type Client struct {
	url     string
	token   string
	dialer  *websocket.Dialer
	handler Handler
	log     waLog.Logger
}

func NewClient(url, token string, handler Handler, log waLog.Logger) *Client {
	if log == nil {
		log = waLog.Noop
	}
	return &Client{
		url:     strings.TrimSpace(url),
		token:   strings.TrimSpace(token),
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handler: handler,
		log:     log,
	}
}

// Run keeps the subscription alive, reconnecting with exponential backoff,
// until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	if c.url == "" {
		return ErrFeedDisabled
	}
	backoff := minBackoff
	for {
		connected, err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = minBackoff
		}
		c.log.Warnf("feed desconectado: %v; nova tentativa em %s", err, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) consume(ctx context.Context) (bool, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	c.log.Infof("feed conectado em %s", c.url)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		batch, err := Decode(data)
		if err != nil {
			c.log.Warnf("frame do feed ignorado: %v", err)
			continue
		}
		if c.handler != nil && len(batch) > 0 {
			c.handler(ctx, batch)
		}
	}
}

// Decode accepts either a JSON array of notifications or a single notification object.
func Decode(data []byte) ([]notification.Notification, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var batch []notification.Notification
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, err
		}
		return batch, nil
	}
	var single notification.Notification
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []notification.Notification{single}, nil
}

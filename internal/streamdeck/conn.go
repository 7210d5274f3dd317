// Package streamdeck speaks the host's websocket protocol for one plugin process.
package streamdeck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Options carries the launch parameters the host passes to the plugin binary.
type Options struct {
	Address       string
	Port          int
	PluginUUID    string
	RegisterEvent string
	DialTimeout   time.Duration
}

// Conn is a registered host connection. Writes are serialized; reads belong to Run.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
}

// Dial opens the host websocket and registers the plugin with its host-assigned UUID.
func Dial(ctx context.Context, opts Options, logger *slog.Logger) (*Conn, error) {
	if opts.Port <= 0 {
		return nil, errors.New("host port is not set")
	}
	if strings.TrimSpace(opts.PluginUUID) == "" {
		return nil, errors.New("plugin uuid is not set")
	}
	if strings.TrimSpace(opts.RegisterEvent) == "" {
		return nil, errors.New("register event is not set")
	}
	if strings.TrimSpace(opts.Address) == "" {
		opts.Address = "127.0.0.1"
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	endpoint := url.URL{Scheme: "ws", Host: net.JoinHostPort(opts.Address, strconv.Itoa(opts.Port))}
	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial host %s: %w", endpoint.String(), err)
	}

	c := &Conn{ws: ws, logger: logger}
	if err := c.Send(Message{Event: opts.RegisterEvent, UUID: opts.PluginUUID}); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("register plugin: %w", err)
	}
	logger.Info("host connected", "endpoint", endpoint.String(), "register_event", opts.RegisterEvent)
	return c, nil
}

// Send writes one JSON frame to the host.
func (c *Conn) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s: %w", msg.Event, err)
	}
	c.logger.Debug("host send", "event", msg.Event, "context", msg.Context)
	return nil
}

// Run reads frames until the host closes the socket or ctx is cancelled.
// Frames that are not valid JSON are logged and skipped.
func (c *Conn) Run(ctx context.Context, handle func(Event)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.ws.Close() })
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read host frame: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("host frame is not JSON", "error", err.Error())
			continue
		}
		c.logger.Debug("host receive", "event", ev.Event, "action", ev.Action, "context", ev.Context)
		handle(ev)
	}
}

// Close sends a close frame and releases the socket.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return c.ws.Close()
}

// GetSettings asks the host to push didReceiveSettings for context.
func (c *Conn) GetSettings(context string) error {
	return c.Send(Message{Event: EventGetSettings, Context: context})
}

// SetSettings persists settings for context.
func (c *Conn) SetSettings(context string, settings map[string]any) error {
	return c.Send(Message{Event: EventSetSettings, Context: context, Payload: settings})
}

// SetTitle renders title on the key for context.
func (c *Conn) SetTitle(context, title string) error {
	return c.Send(Message{Event: EventSetTitle, Context: context, Payload: titlePayload{Title: title}})
}

// SetImage renders a data-URL image on the key; an empty image restores the manifest default.
func (c *Conn) SetImage(context, image string) error {
	return c.Send(Message{Event: EventSetImage, Context: context, Payload: imagePayload{Image: image}})
}

// ShowAlert flashes the host's alert indicator on the key.
func (c *Conn) ShowAlert(context string) error {
	return c.Send(Message{Event: EventShowAlert, Context: context})
}

// SendToPropertyInspector forwards payload to the configuration panel open for context.
func (c *Conn) SendToPropertyInspector(action, context string, payload any) error {
	return c.Send(Message{Event: EventSendToPropertyInspector, Action: action, Context: context, Payload: payload})
}

// LogMessage appends a line to the host's own plugin log.
func (c *Conn) LogMessage(message string) error {
	return c.Send(Message{Event: EventLogMessage, Payload: logPayload{Message: message}})
}

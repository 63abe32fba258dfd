// Package notify sends desktop notifications over the
// org.freedesktop.Notifications D-Bus interface.
package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	dbusInterface = "org.freedesktop.Notifications"
	dbusPath      = "/org/freedesktop/Notifications"
	dbusBusName   = "org.freedesktop.Notifications"
)

// Client posts notifications on the session bus. The connection is
// opened lazily on first send and reused afterwards.
type Client struct {
	appName string
	logger  *slog.Logger

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewClient creates a notification client posting as appName.
func NewClient(appName string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{appName: appName, logger: logger}
}

// connect opens the session bus connection if needed. Caller holds mu.
func (c *Client) connect() error {
	if c.conn != nil {
		return nil
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	c.conn = conn
	return nil
}

// Send posts a transient notification with the given summary and body.
// iconPath may be empty.
func (c *Client) Send(summary, body, iconPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return err
	}

	obj := c.conn.Object(dbusBusName, dbus.ObjectPath(dbusPath))
	call := obj.Call(dbusInterface+".Notify", 0,
		c.appName,                 // app_name
		uint32(0),                 // replaces_id
		iconPath,                  // app_icon
		summary,                   // summary
		body,                      // body
		[]string{},                // actions
		map[string]dbus.Variant{}, // hints
		int32(-1),                 // expire_timeout, server default
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}

	c.logger.Debug("notification sent", "summary", summary)
	return nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

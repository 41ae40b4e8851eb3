package uibridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultDialTimeout bounds the initial connection when the context has no
// deadline.
const DefaultDialTimeout = 10 * time.Second

// ClientConfig configures Dial.
type ClientConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// Client is a connected socket.io client.
type Client struct {
	io *socket.Socket
}

// Dial connects to the UI and waits for the connection to be established.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("component", "uibridge", "url", cfg.URL, "namespace", cfg.Namespace)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse UI URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("UI URL %q must include scheme and host", cfg.URL)
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultDialTimeout)
		defer cancel()
	}

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	done := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Connected to UI.", "sid", io.Id())
		select {
		case done <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case done <- err:
		default:
		}
	})
	io.Connect()

	select {
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out while waiting for initial connection to %s: %w", cfg.URL, ctx.Err())
	case err := <-done:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("connecting to UI at %s: %w", cfg.URL, err)
		}
	}
	return &Client{io: io}, nil
}

// Emit sends one event. It matches EmitFunc.
func (c *Client) Emit(event string, payload any) {
	c.io.Emit(event, payload)
}

// Close disconnects.
func (c *Client) Close() {
	c.io.Disconnect()
}

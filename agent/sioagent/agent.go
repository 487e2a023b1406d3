// Package sioagent connects the adapter to a socket.io broker. Call
// envelopes arrive as "vrpc-call" events and are answered with
// "vrpc-response"; callback events leave as "vrpc-callback" and class info
// as "vrpc-info". Like every agent, it only moves envelopes.
package sioagent

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/kelseyhightower/envconfig"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/heisenware/vrpc-go/envelope"
	"github.com/heisenware/vrpc-go/internal/ctxlog"
	"github.com/heisenware/vrpc-go/registry"
)

const logPrefix = "sioagent"

// Event names spoken on the socket.
const (
	EventCall     = "vrpc-call"
	EventResponse = "vrpc-response"
	EventCallback = "vrpc-callback"
	EventInfo     = "vrpc-info"
)

// Config holds agent configuration loaded from environment variables.
type Config struct {
	// URL of the socket.io endpoint, including path.
	URL string `envconfig:"VRPC_SIO_URL" default:"http://127.0.0.1:3000/socket.io"`
	// Namespace to join.
	Namespace string `envconfig:"VRPC_SIO_NAMESPACE" default:"/"`
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `envconfig:"VRPC_SIO_INSECURE_SKIP_VERIFY" default:"false"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Agent serves one registry over a socket.io connection.
type Agent struct {
	cfg    Config
	reg    *registry.Registry
	io     *socket.Socket
	logger *slog.Logger
}

// New creates an agent for the given registry.
func New(cfg Config, reg *registry.Registry) *Agent {
	return &Agent{cfg: cfg, reg: reg, logger: slog.Default()}
}

// Start connects the socket, wires the event handlers and the callback
// sink, and announces the served classes.
func (a *Agent) Start(ctx context.Context) error {
	a.logger = ctxlog.FromContext(ctx)
	parsedURL, err := url.Parse(a.cfg.URL)
	if err != nil {
		return fmt.Errorf("%s - failed to parse URL: %w", logPrefix, err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))
	if a.cfg.InsecureSkipVerify {
		a.logger.Warn(fmt.Sprintf("%s - Skipping TLS certificate verification", logPrefix))
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	manager := socket.NewManager(baseURL, opts)
	a.io = manager.Socket(a.cfg.Namespace, opts)

	a.io.On(types.EventName("connect"), func(...any) {
		a.logger.Info(fmt.Sprintf("%s - Connected", logPrefix), "namespace", a.cfg.Namespace, "sid", a.io.Id())
		a.publishInfo()
	})
	a.io.On(types.EventName("connect_error"), func(errs ...any) {
		a.logger.Warn(fmt.Sprintf("%s - Connect error: %v", logPrefix, errs))
	})
	a.io.On(types.EventName(EventCall), func(data ...any) {
		a.handleCall(data...)
	})

	if err := a.reg.Bridge().OnCallback(a.publishCallback); err != nil {
		return fmt.Errorf("%s - failed to install callback sink: %w", logPrefix, err)
	}
	a.reg.SetChangeListener(a.publishInfo)

	a.io.Connect()
	return nil
}

// handleCall dispatches one call envelope received as the event's first
// payload element and emits the processed envelope back.
func (a *Agent) handleCall(data ...any) {
	if len(data) == 0 {
		return
	}
	raw, ok := data[0].(string)
	if !ok {
		a.logger.Error(fmt.Sprintf("%s - rejected call event, payload is not a string", logPrefix))
		return
	}
	resp, err := a.reg.CallJSON(raw)
	if err != nil {
		a.logger.Error(fmt.Sprintf("%s - rejected malformed envelope: %v", logPrefix, err))
		resp = hostError(err)
	}
	a.io.Emit(EventResponse, resp)
}

func (a *Agent) publishCallback(ev *envelope.Envelope) {
	out, err := ev.Dump()
	if err != nil {
		a.logger.Error(fmt.Sprintf("%s - failed to encode callback event: %v", logPrefix, err))
		return
	}
	a.io.Emit(EventCallback, out)
}

func (a *Agent) publishInfo() {
	info := make(map[string]any)
	for _, class := range a.reg.Classes() {
		info[class] = map[string]any{
			"memberFunctions": a.reg.MemberFunctions(class),
			"staticFunctions": a.reg.StaticFunctions(class),
			"instances":       a.reg.Instances(class),
		}
	}
	data, err := json.Marshal(info)
	if err != nil {
		a.logger.Error(fmt.Sprintf("%s - failed to encode info: %v", logPrefix, err))
		return
	}
	a.io.Emit(EventInfo, string(data))
}

// Close disconnects the socket.
func (a *Agent) Close() {
	if a.io != nil {
		a.io.Disconnect()
	}
}

func hostError(err error) string {
	data, merr := json.Marshal(map[string]string{"e": err.Error()})
	if merr != nil {
		return `{"e":"internal error"}`
	}
	return string(data)
}

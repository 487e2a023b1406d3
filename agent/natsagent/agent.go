package natsagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/heisenware/vrpc-go/envelope"
	"github.com/heisenware/vrpc-go/internal/ctxlog"
	"github.com/heisenware/vrpc-go/registry"
)

const logPrefix = "natsagent"

// Agent serves one registry over a NATS connection. Call dispatch is
// serialized by the subscription's delivery goroutine, matching the
// registry's synchronization contract.
type Agent struct {
	cfg    Config
	reg    *registry.Registry
	nc     *nats.Conn
	sub    *nats.Subscription
	logger *slog.Logger
}

// New creates an agent for the given registry.
func New(cfg Config, reg *registry.Registry) *Agent {
	return &Agent{cfg: cfg, reg: reg, logger: slog.Default()}
}

// Start connects to the broker, installs the callback sink, subscribes for
// call envelopes, and publishes the initial class info.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	a.logger = ctxlog.FromContext(ctx)
	a.logger.Info(fmt.Sprintf("%s - Connecting to broker at %s as %s", logPrefix, a.cfg.URL, a.cfg.Name))

	nc, err := nats.Connect(a.cfg.URL,
		nats.Name(a.cfg.Name),
		nats.Timeout(a.cfg.ConnectTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			a.logger.Warn(fmt.Sprintf("%s - broker disconnected: %v", logPrefix, err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			a.logger.Info(fmt.Sprintf("%s - broker reconnected to %s", logPrefix, nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			a.logger.Info(fmt.Sprintf("%s - broker connection closed", logPrefix))
		}),
	)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to broker: %w", logPrefix, err)
	}
	a.nc = nc

	if err := a.reg.Bridge().OnCallback(a.publishCallback); err != nil {
		nc.Close()
		return fmt.Errorf("%s - failed to install callback sink: %w", logPrefix, err)
	}
	a.reg.SetChangeListener(a.publishInfo)

	sub, err := nc.Subscribe(a.cfg.CallSubject(), a.handleCall)
	if err != nil {
		nc.Close()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, a.cfg.CallSubject(), err)
	}
	a.sub = sub

	a.publishInfo()
	a.logger.Info(fmt.Sprintf("%s - Serving calls on %s", logPrefix, a.cfg.CallSubject()))
	return nil
}

// handleCall dispatches one call envelope and replies with the processed
// envelope. A malformed envelope cannot carry its own error, so the reply
// degrades to a bare error object.
func (a *Agent) handleCall(msg *nats.Msg) {
	resp, err := a.reg.CallJSON(string(msg.Data))
	if err != nil {
		a.logger.Error(fmt.Sprintf("%s - rejected malformed envelope: %v", logPrefix, err))
		resp = hostError(err)
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond([]byte(resp)); err != nil {
		a.logger.Error(fmt.Sprintf("%s - failed to respond on %s: %v", logPrefix, msg.Reply, err))
	}
}

func (a *Agent) publishCallback(ev *envelope.Envelope) {
	out, err := ev.Dump()
	if err != nil {
		a.logger.Error(fmt.Sprintf("%s - failed to encode callback event: %v", logPrefix, err))
		return
	}
	if err := a.nc.Publish(a.cfg.CallbackSubject(), []byte(out)); err != nil {
		a.logger.Error(fmt.Sprintf("%s - failed to publish callback event: %v", logPrefix, err))
	}
}

// publishInfo announces the served classes and their shared instances. It
// runs at startup and again after every instance creation or deletion.
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
	if err := a.nc.Publish(a.cfg.InfoSubject(), data); err != nil {
		a.logger.Error(fmt.Sprintf("%s - failed to publish info: %v", logPrefix, err))
	}
}

// Close unsubscribes and drains the connection.
func (a *Agent) Close() {
	if a.sub != nil {
		if err := a.sub.Unsubscribe(); err != nil {
			a.logger.Warn(fmt.Sprintf("%s - failed to unsubscribe: %v", logPrefix, err))
		}
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Warn(fmt.Sprintf("%s - failed to drain connection: %v", logPrefix, err))
		}
	}
}

func hostError(err error) string {
	data, merr := json.Marshal(map[string]string{"e": err.Error()})
	if merr != nil {
		return `{"e":"internal error"}`
	}
	return string(data)
}

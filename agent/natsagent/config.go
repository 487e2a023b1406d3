// Package natsagent connects the adapter to a NATS broker: call envelopes
// arrive as request/reply messages, callback events and class info are
// published as fire-and-forget events. The core stays transport-agnostic;
// this package only moves envelopes.
package natsagent

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds agent configuration loaded from environment variables.
type Config struct {
	// URL of the broker to connect to.
	URL string `envconfig:"VRPC_BROKER_URL" default:"nats://127.0.0.1:4222"`
	// Domain groups agents into one namespace on the broker.
	Domain string `envconfig:"VRPC_DOMAIN" default:"vrpc"`
	// Agent is this process's name within the domain.
	Agent string `envconfig:"VRPC_AGENT" default:"agent"`
	// Name identifies the client connection on the broker.
	Name string `envconfig:"SERVICE_NAME" default:"vrpc-agent"`
	// ConnectTimeout bounds the initial broker connection.
	ConnectTimeout time.Duration `envconfig:"VRPC_CONNECT_TIMEOUT" default:"10s"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks required configuration before the agent starts.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("natsagent: broker URL is required")
	}
	if c.Domain == "" || c.Agent == "" {
		return fmt.Errorf("natsagent: domain and agent name are required")
	}
	return nil
}

// CallSubject is where call envelopes are received.
func (c *Config) CallSubject() string {
	return fmt.Sprintf("%s.%s.call", c.Domain, c.Agent)
}

// CallbackSubject is where callback events are published.
func (c *Config) CallbackSubject() string {
	return fmt.Sprintf("%s.%s.callback", c.Domain, c.Agent)
}

// InfoSubject is where class and instance info is published.
func (c *Config) InfoSubject() string {
	return fmt.Sprintf("%s.%s.info", c.Domain, c.Agent)
}

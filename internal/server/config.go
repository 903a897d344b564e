package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig is the complete server configuration.
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address        string `hcl:"address,optional"`
	Port           int    `hcl:"port,optional"`
	LogLevel       string `hcl:"log_level,optional"`
	HandHistoryDir string `hcl:"hand_history_dir,optional"`
}

// TableConfig defines one table.
type TableConfig struct {
	Name            string `hcl:"name,label"`
	Seats           int    `hcl:"seats,optional"`
	SmallBlind      int    `hcl:"small_blind"`
	BigBlind        int    `hcl:"big_blind"`
	BuyInMin        int    `hcl:"buy_in_min,optional"`
	BuyInMax        int    `hcl:"buy_in_max,optional"`
	TurnTimeoutSec  int    `hcl:"turn_timeout,optional"`
	ReconnectSec    int    `hcl:"reconnect_grace,optional"`
	InterHandDelayS int    `hcl:"inter_hand_delay,optional"`
}

// TurnTimeout returns the acting window as a duration.
func (t TableConfig) TurnTimeout() time.Duration {
	return time.Duration(t.TurnTimeoutSec) * time.Second
}

// ReconnectGrace returns the disconnect grace window as a duration.
func (t TableConfig) ReconnectGrace() time.Duration {
	return time.Duration(t.ReconnectSec) * time.Second
}

// InterHandDelay returns the pause between hands as a duration.
func (t TableConfig) InterHandDelay() time.Duration {
	return time.Duration(t.InterHandDelayS) * time.Second
}

// DefaultServerConfig returns the configuration used when no file exists.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: []TableConfig{
			{
				Name:            "main",
				Seats:           6,
				SmallBlind:      1,
				BigBlind:        2,
				BuyInMin:        100,
				BuyInMax:        1000,
				TurnTimeoutSec:  30,
				ReconnectSec:    60,
				InterHandDelayS: 3,
			},
		},
	}
}

// LoadServerConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}

	for i := range config.Tables {
		t := &config.Tables[i]
		if t.Seats == 0 {
			t.Seats = 6
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 50
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 500
		}
		if t.TurnTimeoutSec == 0 {
			t.TurnTimeoutSec = 30
		}
		if t.ReconnectSec == 0 {
			t.ReconnectSec = 60
		}
		if t.InterHandDelayS == 0 {
			t.InterHandDelayS = 3
		}
	}

	return &config, nil
}

// Validate checks the configuration for contradictions.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	for _, table := range c.Tables {
		if table.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", table.Name)
		}
		if table.BigBlind <= table.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", table.Name)
		}
		if table.Seats < 2 || table.Seats > 10 {
			return fmt.Errorf("table %s: seats must be between 2 and 10", table.Name)
		}
		if table.BuyInMin >= table.BuyInMax {
			return fmt.Errorf("table %s: buy-in minimum must be less than maximum", table.Name)
		}
		if table.BuyInMin < table.BigBlind {
			return fmt.Errorf("table %s: buy-in minimum below one big blind", table.Name)
		}
	}

	return nil
}

// GetServerAddress returns the full bind address.
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

package config

import (
	"fmt"
	"os"
)

const configTemplate = `# tradesim configuration

[api]
# Base URL of the trading simulator API
base_url = "http://localhost:5000"
# Request timeout (e.g., "15s", "1m")
timeout = "15s"
# Client-side request throttle; 0 disables it
requests_per_second = 0

[session]
# SQLite file holding the login session
# db_path = "~/.config/tradesim/session.db"

[display]
# ISO 4217 code used when rendering amounts
currency = "USD"
# Enable colored output
color_enabled = true

[logging]
# Level: debug, info, warn, error, disabled
level = "warn"
# Also write logs to a rotating file
file = false
# file_path = "~/.config/tradesim/logs/tradesim.log"
max_size = 10
max_backups = 3
max_age = 28
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := ConfigPath(configDir)
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

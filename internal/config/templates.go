package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Equity Tracker Configuration

[database]
# SQLite database file path
path = ""

[market]
# How long a market open/closed answer stays fresh
status_cache_ttl = "5m"
# Delay between symbols during a batch price fetch
batch_pacing = "100ms"
# HTTP timeout per price source request
request_timeout = "10s"

[refresh]
# Run a background price refresh on a schedule
enabled = false
# Cron expression with a seconds field
schedule = "0 */5 * * * *"
# Whose portfolios to refresh
user_id = "default"

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
`

const credentialsTemplate = `# Equity Tracker Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[alpaca]
api_key = ""
api_secret = ""
trade_url = "https://paper-api.alpaca.markets"
data_url = "https://data.alpaca.markets"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Restricted permissions for credentials
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}

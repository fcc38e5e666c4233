// Package config loads runtime configuration for the FanPulse CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the FanPulse API
//	-d string   path of the local SQLite database
//	-t int      request timeout (seconds)
//	-i int      online status check interval (seconds)
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s" or
// integer nanoseconds. Missing keys keep the default:
//
//	{
//	  "api_base_url": "http://127.0.0.1:8000",
//	  "storage_path": "fanpulse.db",
//	  "request_timeout": "10s",
//	  "online_check_interval": "3s",
//	  "log_level": "info"
//	}
package config

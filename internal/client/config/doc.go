// Package config loads runtime configuration for the platerecon CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or --config.
//  3. PLATERECON_SERVER environment variable.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "token_file": "/home/me/.config/platerecon/token",
//	  "timeout": "60s"
//	}
package config

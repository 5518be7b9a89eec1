// Package config provides the application configuration: model providers,
// MCP servers and chat settings.
//
// YAML and JSON files are loaded with environment variables expanded,
// TOML files are detected by the `.toml` extension.
package config

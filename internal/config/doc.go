// Package config owns bleep's TOML configuration: built-in defaults, the
// file at ~/.config/bleep/config.toml (or --config), environment fallbacks
// for secrets such as OPENAI_API_KEY and BLEEP_API_TOKEN, path expansion,
// and validation.
//
// Load returns a normalized Config; callers should not re-derive paths or
// re-read environment variables themselves.
package config

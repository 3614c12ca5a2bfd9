// Package config holds the settings of pagelens and the layers they are
// read from: built-in defaults, an optional YAML file, PAGELENS_*
// environment variables (optionally loaded from .env files) and finally
// command line flags, each layer overriding the previous one.
package config

// Package config loads application settings from an optional YAML file and
// HIERCONF_-prefixed environment variables, applies defaults and validates
// the result before any component is constructed.
package config

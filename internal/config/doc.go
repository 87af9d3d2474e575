// Package config loads dataextractor configuration from local and global YAML
// files with precedence rules, and imports the legacy JSON settings blob. It
// is internal; CLI code maps flags and files into registry settings.
package config

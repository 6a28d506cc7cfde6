// Package config loads and saves the devwatch configuration file.
//
// The file lives at $XDG_CONFIG_HOME/devwatch/config.yaml (or
// $HOME/.config/devwatch/config.yaml) and is optional:
//
//	version: 1
//	service_type: _discover._tcp
//	transport: avahi
//	format: detailed
//	idle_interval: 5
//
// Fields absent from the file keep their defaults, and command-line flags
// override whatever the file says.
package config

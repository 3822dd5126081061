// Package meterconfig provides user configuration management for the
// decoder: a YAML file recording which meter ids are known, their
// decryption keys and driver overrides, and discovery preferences. The
// file follows OS-specific XDG-style conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/wmbusdecode/config.yaml or $HOME/.config/wmbusdecode/config.yaml
//   - macOS: $HOME/.config/wmbusdecode/config.yaml
//   - Windows: %LOCALAPPDATA%\wmbusdecode\config.yaml
//
// # Security
//
// Keys are stored here deliberately (unlike the upstream registry this
// package was adapted from, which never persists secrets): a meter's AES
// key is meaningless without it, and re-entering it by hand for every
// process restart defeats the point of a decode daemon. Treat the config
// file as sensitive; it is written with 0600 permissions.
package meterconfig

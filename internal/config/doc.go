// Package config loads meetgate's YAML configuration.
//
// Files are decoded on top of Default, so every key is optional. ${VAR}
// references are expanded from the environment before decoding, which keeps
// secrets such as oracle.api_key and calendar.client_secret out of the file.
package config

// Package config loads the YAML configuration of the auction client.
//
// ${VAR} references are expanded from the environment before parsing. Optional
// fields get the Default* values; Validate reports the first invalid field by
// its dotted YAML path.
package config

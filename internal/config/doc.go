// Package config loads whispers configuration from explicit, local and
// global YAML files and resolves it into an immutable AppConfig. CLI code
// maps flags onto a FileConfig and merges it last.
package config

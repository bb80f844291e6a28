// Package config loads the YAML configuration of the runtime: executor pool
// sizing, where the producer places its arena in guest memory, and logging.
// Values missing from a file keep their defaults.
package config

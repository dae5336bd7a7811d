// Package config loads the agent's YAML configuration file: work
// directory, worker count, FIPS mode, trust-on-first-use policy, and
// the default transaction intervals, with every omitted field falling
// back to a usable default.
package config

/*
Package config loads hub and flow settings from YAML or JSON documents.

# Overview

Config wraps a map[string]any and extracts typed values, falling back to a
default when a key is missing or holds the wrong type. Settings is the typed
view the hub and flows consume:

	settings, err := config.Load("flowhub.yaml")
	if err != nil {
	    log.Fatal(err)
	}

FromFile stops at the validated Config, for documents that carry other
sections. FromYAML and FromJSON only parse; run Validate on their result.

A document looks like:

	heartbeat_interval: 5s
	slow_handler: 100ms
	slow_handler_level: warn
	slow_dispatch: 1s
	long_queue: 1000
	long_queue_level: warn

Settings may also live under a section of a larger document; use Sub to
select it.

# Type Coercion

Duration accepts a time.ParseDuration string, or a number of seconds. Level
accepts the slog level names, case-insensitive.

# Validation

Validate checks a document against an embedded JSON schema and reports every
violation at once. FromFile and Load run it on every file they read.
*/
package config

// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package config loads VMSBridge configuration with Koanf v2.

Sources are layered: struct defaults, an optional YAML file (CONFIG_PATH,
config.yaml or /etc/vmsbridge/config.yaml) and finally environment
variables. Only environment variables listed in the explicit mapping are
read, so unrelated variables never leak into the configuration.

# Environment Variables

Gateway:
  - AIB_URL: GraphQL endpoint (default: http://aibridge-webservice.processing-server:4000/api/bridge/graphql)
  - GATEWAY_REST_URL: REST base URL
  - GATEWAY_CIRCUIT_BREAKER: Enable the circuit breaker (default: true)

Identity:
  - SYSTEM_IDENTITY_PROVIDER: Identity provider base URL
  - LEGACY_MANAGEMENT_SERVER, LEGACY_USE_TLS: Management server host and scheme
  - CREDENTIAL_FLOW: basic, integrated or client_credentials
  - VMS_USERNAME, VMS_PASSWORD, VMS_DOMAIN
  - CCF_CLIENT_ID, CCF_CLIENT_SECRET (or the _FILE variants)

Server and metrics:
  - HOST, PORT: Listen address (default: 0.0.0.0:9090)
  - PROMETHEUS_URL: Reported scrape location (default: http://prometheus-server.prometheus:80)

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cred, err := cfg.Identity.Credential()

The returned Config is immutable and safe for concurrent reads.
*/
package config

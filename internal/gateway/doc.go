// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package gateway executes authenticated GraphQL and REST calls against the VMS
API gateway and classifies every response into an Outcome.

Classification runs in a fixed order and stops at the first match:

 1. transport-error: the request could not be completed (connection refused,
    timeout, DNS, TLS, open circuit breaker)
 2. http-error: the gateway answered with a non-2xx status
 3. graphql-error: the JSON body carries a non-empty "errors" list
 4. missing-data: the JSON body has no usable "data" field
 5. otherwise Success, carrying "data" (GraphQL) or the whole body (REST)

REST calls skip steps 3 and 4: a 2xx JSON object body is a success, an empty
body yields empty data.

Each call made through an Executor records exactly one sample on the
injected Recorder, on every path, before it returns. Failures are returned
as values; the executor never terminates the process and never retries.

# Usage

	exec := gateway.NewExecutor(rec, gateway.Options{HTTP: httpOpts})
	out := exec.Execute(ctx, gatewayURL, gateway.QuerySpec{Query: gateway.CamerasQuery}, tok)
	if !out.OK() {
	    return out.Err()
	}
	cameras := out.Data["cameras"]
*/
package gateway

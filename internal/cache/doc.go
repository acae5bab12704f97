// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package cache provides a thread-safe in-memory cache with TTL support.

The bridge caches gateway documents that change only when the VMS is
reconfigured, such as the well-known URIs of a management server. Live
query results are never cached; every exporter scrape reaches the gateway.

# Behavior

  - Every entry lives for the TTL given to New
  - Expired entries are removed on Get and swept on every Set
  - No background goroutine; a Cache needs no Close
  - Hits, misses and evictions are counted for GetStats and HitRate

# Usage

	docs := cache.New[*gateway.WellKnownURIs](5 * time.Minute)
	if doc, ok := docs.Get(serverURL); ok {
	    return doc, nil
	}
	doc, err := fetch(ctx, serverURL)
	if err == nil {
	    docs.Set(serverURL, doc)
	}

Failed fetches are not cached.
*/
package cache

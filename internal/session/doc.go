// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

// Package session orchestrates the identity and gateway packages: it owns
// the token lifecycle (TokenSource) and runs the GraphQL and REST flows the
// HTTP surface exposes (Service).
//
// The acquirer and executor stay stateless. Caching, renewal and dropping a
// token the gateway rejected all happen here.
package session

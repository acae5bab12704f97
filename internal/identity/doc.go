// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package identity exchanges credentials for bearer tokens at the VMS identity
provider.

Three grants are supported, one per Credential variant:

  - BasicCredential: grant_type=password against {endpoint}/connect/token
  - IntegratedCredential: grant_type=windows_credentials against
    {endpoint}/connect/token, with the HTTP exchange authenticated by NTLM
  - ClientCredential: grant_type=client_credentials against
    {endpoint}/API/IDP/connect/token

The password and windows grants identify themselves with the fixed client id
GrantValidatorClient.

# Usage

	acq := identity.NewAcquirer(httpclient.Options{InsecureSkipVerify: !useTLS}, rec)
	tok, err := acq.Acquire(ctx, "https://vms.example", identity.ClientCredential{
	    ClientID:     id,
	    ClientSecret: secret,
	})
	var acqErr *identity.AcquireError
	if errors.As(err, &acqErr) {
	    // acqErr.Status is 0 when the provider was unreachable
	}

An Acquirer holds no token state: every call performs exactly one exchange,
without retry. Renewal belongs to the caller (see package session).

When only a management server is known, ResolveEndpoint reads its OpenID
configuration and returns the identity provider base URL for a flow.
*/
package identity

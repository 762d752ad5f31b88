// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package oidc authenticates a resource owner against an OpenID Connect
provider with the OAuth 2.0 resource owner password credentials grant
(RFC 6749, section 4.3).

Primary types provided by the package

* Config: the relying party configuration (client id/secret, issuer,
additional scopes, an optional provider CA and the request timeouts)

* Provider: the discovered provider.  NewProvider fetches the provider's
metadata from the issuer's well known configuration and validates the
returned issuer; PasswordCredentials exchanges a username and password for a
Token at the discovered token endpoint.

* Token: the result of a successful exchange.  Its AccessToken redacts itself.

* TestProvider: an in-process provider for tests which supports discovery and
the password grant.
*/
package oidc

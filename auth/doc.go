// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package auth implements the PAM operations of pam_oidc on top of the config
and oidc packages.

Authenticate reads the user and password from the host, loads the
configuration, discovers the provider and exchanges the credentials at its
token endpoint with the resource owner password credentials grant. Every
failure is an *Error whose Kind decides the PAM Result handed back to the
host:

	KindRequestToken     PAM_AUTH_ERR
	KindDiscovery        PAM_AUTHINFO_UNAVAIL
	KindConfigRetrieval  PAM_OPEN_ERR
	KindUTF8             PAM_AUTHTOK_ERR
	KindConfigUnmarshal  PAM_ABORT
	KindURLParse         PAM_ABORT
	KindInternal         PAM_ABORT

The remaining operations (SetCred, ChangeAuthTok, AcctMgmt, OpenSession and
CloseSession) return PAM_IGNORE.

Example:

	a := auth.NewAuthenticator(auth.WithConfigPath("/etc/pam_oidc/config.yaml"))
	switch r := a.Authenticate(ctx, h); r {
	case auth.Success:
		// welcome
	default:
		fmt.Println("authentication failed:", r)
	}
*/
package auth

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import "strconv"

// Result is a PAM result code.  The values are the Linux-PAM numeric codes
// returned from the module's entry points.
type Result int

const (
	Success         Result = 0
	OpenErr         Result = 1
	SystemErr       Result = 4
	AuthErr         Result = 7
	AuthinfoUnavail Result = 9
	AuthtokErr      Result = 20
	Ignore          Result = 25
	Abort           Result = 26
)

// String returns the PAM name of the result.
func (r Result) String() string {
	switch r {
	case Success:
		return "PAM_SUCCESS"
	case OpenErr:
		return "PAM_OPEN_ERR"
	case SystemErr:
		return "PAM_SYSTEM_ERR"
	case AuthErr:
		return "PAM_AUTH_ERR"
	case AuthinfoUnavail:
		return "PAM_AUTHINFO_UNAVAIL"
	case AuthtokErr:
		return "PAM_AUTHTOK_ERR"
	case Ignore:
		return "PAM_IGNORE"
	case Abort:
		return "PAM_ABORT"
	default:
		return "PAM_RESULT(" + strconv.Itoa(int(r)) + ")"
	}
}

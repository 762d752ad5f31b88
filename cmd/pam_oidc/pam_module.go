// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build go_pam_module

//go:generate go build "-ldflags=-extldflags -Wl,-soname,pam_oidc.so" -buildmode=c-shared -o pam_oidc.so -tags go_pam_module

package main

/*
#cgo LDFLAGS: -lpam -fPIC
#include <security/pam_modules.h>

typedef const char _const_char_t;
*/
import "C"

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/msteinert/pam/v2"
)

// handle reads the items of a native PAM handle.
type handle struct {
	pamh *C.pam_handle_t
}

func (h handle) item(item C.int) (string, error) {
	var value unsafe.Pointer
	if ret := C.pam_get_item(h.pamh, item, &value); ret != C.PAM_SUCCESS {
		return "", fmt.Errorf("pam_get_item: %w", pam.Error(ret))
	}
	if value == nil {
		return "", nil
	}
	return C.GoString((*C.char)(value)), nil
}

// User returns PAM_USER.  pam_get_user isn't used since it prompts through
// the conversation function when no earlier module set the user.
func (h handle) User() (string, error) {
	return h.item(C.PAM_USER)
}

// AuthToken returns PAM_AUTHTOK as stored by an earlier module, usually
// pam_unix or pam_authtok_get.
func (h handle) AuthToken() (string, error) {
	return h.item(C.PAM_AUTHTOK)
}

// handlePamCall runs fn and converts its error into the code returned to the
// host.  It never lets a panic cross into the host.
func handlePamCall(pamh *C.pam_handle_t, fn func(h handle) error) (ret C.int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "pam_oidc: recovered from panic: %v\n", r)
			ret = C.int(pam.ErrAbort)
		}
	}()
	if pamh == nil {
		return C.int(pam.ErrSystem)
	}
	return C.int(returnCode(fn(handle{pamh: pamh})))
}

//export pam_sm_authenticate
func pam_sm_authenticate(pamh *C.pam_handle_t, flags C.int, argc C.int, argv **C._const_char_t) C.int {
	return handlePamCall(pamh, func(h handle) error { return pamModule.authenticate(h) })
}

//export pam_sm_setcred
func pam_sm_setcred(pamh *C.pam_handle_t, flags C.int, argc C.int, argv **C._const_char_t) C.int {
	return handlePamCall(pamh, func(handle) error { return pamModule.setCred() })
}

//export pam_sm_acct_mgmt
func pam_sm_acct_mgmt(pamh *C.pam_handle_t, flags C.int, argc C.int, argv **C._const_char_t) C.int {
	return handlePamCall(pamh, func(handle) error { return pamModule.acctMgmt() })
}

//export pam_sm_open_session
func pam_sm_open_session(pamh *C.pam_handle_t, flags C.int, argc C.int, argv **C._const_char_t) C.int {
	return handlePamCall(pamh, func(handle) error { return pamModule.openSession() })
}

//export pam_sm_close_session
func pam_sm_close_session(pamh *C.pam_handle_t, flags C.int, argc C.int, argv **C._const_char_t) C.int {
	return handlePamCall(pamh, func(handle) error { return pamModule.closeSession() })
}

//export pam_sm_chauthtok
func pam_sm_chauthtok(pamh *C.pam_handle_t, flags C.int, argc C.int, argv **C._const_char_t) C.int {
	return handlePamCall(pamh, func(handle) error { return pamModule.changeAuthTok() })
}

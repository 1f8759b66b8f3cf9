//go:build darwin && cgo

package biometric

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework Foundation -framework LocalAuthentication
#include <stdlib.h>
#include "bridge_darwin.h"
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

type touchIDNative struct{}

func SystemNative() Native {
	return touchIDNative{}
}

func (touchIDNative) Name() string {
	return "Touch ID"
}

func (touchIDNative) CanEvaluate() (bool, error) {
	return C.verox_can_evaluate_biometric() == 1, nil
}

func (touchIDNative) Evaluate(reason string, done func(Outcome)) error {
	handle := cgo.NewHandle(done)
	cReason := C.CString(reason)
	defer C.free(unsafe.Pointer(cReason))
	C.verox_evaluate_biometric(cReason, C.uintptr_t(handle))
	return nil
}

//export veroxBiometricCallback
func veroxBiometricCallback(handle C.uintptr_t, success C.int, code C.int, message *C.char) {
	h := cgo.Handle(handle)
	done, ok := h.Value().(func(Outcome))
	h.Delete()
	if !ok {
		return
	}
	if success != 0 {
		done(Outcome{Kind: OutcomeSuccess})
		return
	}
	text := ""
	if message != nil {
		text = C.GoString(message)
	}
	done(outcomeForLAError(int(code), text))
}

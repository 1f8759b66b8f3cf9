//go:build windows

package biometric

import (
	"golang.org/x/sys/windows"
)

const (
	mbYesNo         = 0x00000004
	mbIconQuestion  = 0x00000020
	mbSetForeground = 0x00010000
	mbTopMost       = 0x00040000
	idYes           = 6
)

// helloNative asks for an explicit confirmation through a system dialog.
// TODO: prompt through the WinRT UserConsentVerifier instead of a dialog.
type helloNative struct{}

func SystemNative() Native {
	return helloNative{}
}

func (helloNative) Name() string {
	return "Windows Hello"
}

func (helloNative) CanEvaluate() (bool, error) {
	return true, nil
}

func (helloNative) Evaluate(reason string, done func(Outcome)) error {
	text, err := windows.UTF16PtrFromString(reason + "\n\nAllow this request?")
	if err != nil {
		return err
	}
	caption, err := windows.UTF16PtrFromString("Verox Wallet - Windows Hello")
	if err != nil {
		return err
	}
	go func() {
		ret, err := windows.MessageBox(0, text, caption, mbYesNo|mbIconQuestion|mbSetForeground|mbTopMost)
		switch {
		case ret == 0 && err != nil:
			done(Outcome{Kind: OutcomeUnavailable, Reason: err.Error()})
		case ret == idYes:
			done(Outcome{Kind: OutcomeSuccess})
		default:
			done(Outcome{Kind: OutcomeDenied, Reason: "request declined"})
		}
	}()
	return nil
}

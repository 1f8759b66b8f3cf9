package biometric

import "errors"

var (
	ErrVaultIO               = errors.New("biometric vault failure")
	ErrCapabilityUnavailable = errors.New("biometric authentication is not available")
	ErrNotRegistered         = errors.New("biometric authentication is not registered")
	ErrDenied                = errors.New("biometric authentication denied")
	ErrTimedOut              = errors.New("biometric prompt timed out")
	ErrCancelled             = errors.New("biometric prompt cancelled")
)

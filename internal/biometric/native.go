package biometric

// Native is the platform biometric subsystem. Evaluate must return quickly
// and invoke done later, from any goroutine or OS thread. done may be
// called more than once by a misbehaving platform; only the first call is
// honoured by the Gate.
type Native interface {
	Name() string
	CanEvaluate() (bool, error)
	Evaluate(reason string, done func(Outcome)) error
}

// MethodName is the user-facing name of this platform's biometric method.
func MethodName() string {
	return SystemNative().Name()
}

// LocalAuthentication error codes (LAError.h).
const (
	laErrorAuthenticationFailed = -1
	laErrorUserCancel           = -2
	laErrorUserFallback         = -3
	laErrorSystemCancel         = -4
	laErrorPasscodeNotSet       = -5
	laErrorBiometryUnavailable  = -6
	laErrorBiometryNotEnrolled  = -7
	laErrorBiometryLockout      = -8
	laErrorAppCancel            = -9
)

// outcomeForLAError classifies a failed evaluatePolicy reply.
func outcomeForLAError(code int, message string) Outcome {
	switch code {
	case laErrorUserCancel, laErrorSystemCancel, laErrorAppCancel:
		return Outcome{Kind: OutcomeCancelled, Reason: message}
	case laErrorPasscodeNotSet, laErrorBiometryUnavailable, laErrorBiometryNotEnrolled, laErrorBiometryLockout:
		return Outcome{Kind: OutcomeUnavailable, Reason: message}
	case laErrorAuthenticationFailed, laErrorUserFallback:
		return Outcome{Kind: OutcomeDenied, Reason: message}
	default:
		if message == "" {
			message = "authentication failed"
		}
		return Outcome{Kind: OutcomeDenied, Reason: message}
	}
}

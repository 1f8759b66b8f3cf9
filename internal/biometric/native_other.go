//go:build !windows && !(darwin && cgo)

package biometric

type unsupportedNative struct{}

func SystemNative() Native {
	return unsupportedNative{}
}

func (unsupportedNative) Name() string {
	return "Biometric Authentication"
}

func (unsupportedNative) CanEvaluate() (bool, error) {
	return false, nil
}

func (unsupportedNative) Evaluate(string, func(Outcome)) error {
	return ErrCapabilityUnavailable
}

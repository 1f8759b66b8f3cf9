package biometric

import "context"

// Probe answers whether a biometric prompt can run right now. Results are
// never cached: enrollment and hardware can change between calls.
type Probe interface {
	IsAvailable(ctx context.Context) (bool, error)
}

type NativeProbe struct {
	native Native
}

func NewNativeProbe(native Native) *NativeProbe {
	return &NativeProbe{native: native}
}

func (p *NativeProbe) IsAvailable(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.native.CanEvaluate()
}

// State collapses a probe answer into a Capability; errors become Unknown.
func State(ctx context.Context, p Probe) Capability {
	ok, err := p.IsAvailable(ctx)
	switch {
	case err != nil:
		return CapabilityUnknown
	case ok:
		return CapabilityAvailable
	default:
		return CapabilityUnavailable
	}
}

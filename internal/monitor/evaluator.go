package monitor

// Decision is the outcome of evaluating one product.
type Decision struct {
	// Available and Known describe the state to persist. Known is false only when the
	// product has never been confirmed and the current probe failed.
	Available bool
	Known     bool
	// Alert is nil when nothing should be sent.
	Alert *Alert
}

// Evaluate applies the transition table for one product.
// Alerts fire only on a confirmed edge or on a probe error; a probe error keeps the previous state.
func Evaluate(product Product, prevAvailable, prevKnown bool, result ProbeResult) Decision {
	switch result.Kind {
	case ProbeAvailable, ProbeUnavailable:
		current := result.Kind == ProbeAvailable
		d := Decision{Available: current, Known: true}
		if !prevKnown || prevAvailable == current {
			return d
		}
		alert := TransitionAlert(product, current)
		d.Alert = &alert
		return d
	default:
		alert := ProbeFailedAlert(product, result.Reason)
		return Decision{Available: prevAvailable, Known: prevKnown, Alert: &alert}
	}
}

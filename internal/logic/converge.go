package logic

// ConvergeTargets sets the enclosure target to the probe target once the probe
// has reached it, so the chamber holds the food at its finished temperature.
// A faulted probe never converges. The bool reports whether sp changed.
func ConvergeTargets(probe Reading, sp Setpoints) (Setpoints, bool) {
	if probe.Fault || probe.Value < sp.Probe {
		return sp, false
	}
	if sp.Enclosure == sp.Probe {
		return sp, false
	}
	sp.Enclosure = sp.Probe
	return sp, true
}

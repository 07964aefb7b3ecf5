package logic

// EmergencyMonitor decides whether the chamber must be shut down. It is
// stateless; latching is the StateMachine's job.
type EmergencyMonitor struct {
	Threshold   int
	TripOnFault bool
}

// Check evaluates all channels in order and reports the first one that trips.
// A reading whose Peak is at or above Threshold trips. A faulted channel trips
// only when TripOnFault is set; otherwise it counts as a low reading. A
// pending channel never trips.
func (m EmergencyMonitor) Check(r Readings) Trip {
	for _, ch := range Channels {
		rd := r.Get(ch)
		if rd.Fault {
			if m.TripOnFault && !rd.Pending {
				return Trip{Tripped: true, Cause: CauseSensorFault, Channel: ch}
			}
			continue
		}
		if v := rd.Peak(); v >= m.Threshold {
			return Trip{Tripped: true, Cause: CauseOverTemperature, Channel: ch, Value: v}
		}
	}
	return Trip{}
}

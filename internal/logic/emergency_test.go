package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ok(v int) Reading { return Reading{Value: v} }

var faulted = Reading{Fault: true}

func TestEmergencyMonitorCheck(t *testing.T) {
	m := EmergencyMonitor{Threshold: 250, TripOnFault: true}

	tests := []struct {
		name string
		in   Readings
		want Trip
	}{
		{"all cool", Readings{ok(225), ok(210), ok(150)}, Trip{}},
		{"just below", Readings{ok(249), ok(249), ok(249)}, Trip{}},
		{"top at threshold", Readings{ok(250), ok(200), ok(150)},
			Trip{Tripped: true, Cause: CauseOverTemperature, Channel: ChannelTop, Value: 250}},
		{"bottom over", Readings{ok(200), ok(260), ok(150)},
			Trip{Tripped: true, Cause: CauseOverTemperature, Channel: ChannelBottom, Value: 260}},
		{"probe over", Readings{ok(200), ok(200), ok(999)},
			Trip{Tripped: true, Cause: CauseOverTemperature, Channel: ChannelProbe, Value: 999}},
		{"probe fault", Readings{ok(200), ok(200), faulted},
			Trip{Tripped: true, Cause: CauseSensorFault, Channel: ChannelProbe}},
		{"pending never trips", Readings{PendingReading(), PendingReading(), PendingReading()}, Trip{}},
		{"over temp beside pending", Readings{PendingReading(), ok(255), PendingReading()},
			Trip{Tripped: true, Cause: CauseOverTemperature, Channel: ChannelBottom, Value: 255}},
		{"hot sample inside cool average", Readings{Reading{Value: 210, Latest: 262}, ok(200), ok(150)},
			Trip{Tripped: true, Cause: CauseOverTemperature, Channel: ChannelTop, Value: 262}},
		{"first channel wins", Readings{ok(300), faulted, ok(300)},
			Trip{Tripped: true, Cause: CauseOverTemperature, Channel: ChannelTop, Value: 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Check(tt.in))
		})
	}
}

func TestEmergencyMonitorFaultAsLowReading(t *testing.T) {
	m := EmergencyMonitor{Threshold: 250, TripOnFault: false}

	assert.False(t, m.Check(Readings{faulted, faulted, faulted}).Tripped)

	trip := m.Check(Readings{faulted, ok(251), faulted})
	assert.True(t, trip.Tripped)
	assert.Equal(t, CauseOverTemperature, trip.Cause)
	assert.Equal(t, ChannelBottom, trip.Channel)
}

func TestReadingPeak(t *testing.T) {
	assert.Equal(t, 200, Reading{Value: 200}.Peak())
	assert.Equal(t, 240, Reading{Value: 200, Latest: 240}.Peak())
	assert.Equal(t, 200, Reading{Value: 200, Latest: 180}.Peak())
}

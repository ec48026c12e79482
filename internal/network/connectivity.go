// Package network derives vehicle/RSU connectivity and the summary metrics of
// the simulated V2X network.
package network

import (
	"time"

	"v2x-sim/internal/geo"
	"v2x-sim/internal/telemetry"
)

// Options tunes connectivity resolution.
type Options struct {
	// MutualRange also requires the RSU to be within the vehicle's own
	// communication range.
	MutualRange bool
}

// InRange reports whether v can reach r.
func InRange(v telemetry.Vehicle, r telemetry.RSU, opts Options) bool {
	d := geo.Distance(v.Position, r.Position)
	if d > r.RangeM {
		return false
	}
	return !opts.MutualRange || d <= v.CommunicationRangeM
}

// Resolve returns copies of vehicles and rsus with both sides' connection
// sets replaced by the current pairwise range test. Every RSU's LastUpdate is
// stamped with now.
func Resolve(vehicles []telemetry.Vehicle, rsus []telemetry.RSU, now time.Time, opts Options) ([]telemetry.Vehicle, []telemetry.RSU) {
	outV := telemetry.CloneVehicles(vehicles)
	outR := telemetry.CloneRSUs(rsus)
	for i := range outV {
		outV[i].ConnectedRSUs = []string{}
	}
	for j := range outR {
		outR[j].ConnectedVehicles = []string{}
		outR[j].LastUpdate = now
	}
	for i := range outV {
		for j := range outR {
			if !InRange(outV[i], outR[j], opts) {
				continue
			}
			outV[i].ConnectedRSUs = append(outV[i].ConnectedRSUs, outR[j].ID)
			outR[j].ConnectedVehicles = append(outR[j].ConnectedVehicles, outV[i].ID)
		}
	}
	return outV, outR
}

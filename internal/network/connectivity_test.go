package network

import (
	"math/rand"
	"testing"
	"time"

	"v2x-sim/internal/geo"
	"v2x-sim/internal/telemetry"
)

func TestResolve_SamePosition(t *testing.T) {
	p := geo.Point{Lat: 40.78, Lng: -73.97}
	vehicles := []telemetry.Vehicle{{ID: "V-001", Position: p}}
	rsus := []telemetry.RSU{{ID: "RSU-01", Position: p, RangeM: 100}}
	now := time.Unix(10, 0)
	v, r := Resolve(vehicles, rsus, now, Options{})
	if len(v[0].ConnectedRSUs) != 1 || v[0].ConnectedRSUs[0] != "RSU-01" {
		t.Fatalf("vehicle not connected: %v", v[0].ConnectedRSUs)
	}
	if len(r[0].ConnectedVehicles) != 1 || r[0].ConnectedVehicles[0] != "V-001" {
		t.Fatalf("rsu not connected: %v", r[0].ConnectedVehicles)
	}
	if !r[0].LastUpdate.Equal(now) {
		t.Fatalf("last update not stamped")
	}
	if vehicles[0].ConnectedRSUs != nil {
		t.Fatalf("input mutated")
	}
}

func TestResolve_OutOfRange(t *testing.T) {
	p := geo.Point{Lat: 40.78, Lng: -73.97}
	far := geo.Offset(p, 1000, 0)
	if d := geo.Distance(p, far); d < 990 || d > 1010 {
		t.Fatalf("offset produced %f m", d)
	}
	vehicles := []telemetry.Vehicle{{ID: "V-001", Position: far}}
	rsus := []telemetry.RSU{{ID: "RSU-01", Position: p, RangeM: 800}}
	v, r := Resolve(vehicles, rsus, time.Now(), Options{})
	if len(v[0].ConnectedRSUs) != 0 || len(r[0].ConnectedVehicles) != 0 {
		t.Fatalf("expected no connection at 1000m with 800m range")
	}
}

func TestResolve_ReplacesStaleEntries(t *testing.T) {
	p := geo.Point{Lat: 40.78, Lng: -73.97}
	vehicles := []telemetry.Vehicle{{ID: "V-001", Position: geo.Offset(p, 5000, 0), ConnectedRSUs: []string{"RSU-01"}}}
	rsus := []telemetry.RSU{{ID: "RSU-01", Position: p, RangeM: 800, ConnectedVehicles: []string{"V-001"}}}
	v, r := Resolve(vehicles, rsus, time.Now(), Options{})
	if len(v[0].ConnectedRSUs) != 0 || len(r[0].ConnectedVehicles) != 0 {
		t.Fatalf("stale connections survived")
	}
}

func TestResolve_MutualRange(t *testing.T) {
	p := geo.Point{Lat: 40.78, Lng: -73.97}
	vehicles := []telemetry.Vehicle{{ID: "V-001", Position: geo.Offset(p, 600, 0), CommunicationRangeM: 400}}
	rsus := []telemetry.RSU{{ID: "RSU-01", Position: p, RangeM: 1000}}
	v, _ := Resolve(vehicles, rsus, time.Now(), Options{})
	if len(v[0].ConnectedRSUs) != 1 {
		t.Fatalf("rsu range alone should connect")
	}
	v, _ = Resolve(vehicles, rsus, time.Now(), Options{MutualRange: true})
	if len(v[0].ConnectedRSUs) != 0 {
		t.Fatalf("mutual range should reject vehicle out of its own range")
	}
}

func TestResolve_Empty(t *testing.T) {
	v, r := Resolve(nil, nil, time.Now(), Options{})
	if len(v) != 0 || len(r) != 0 {
		t.Fatalf("expected empty results")
	}
}

func TestResolve_MatchesPairwise(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	f := telemetry.NewFactory(geo.DefaultBounds, 0, 0, rng)
	vehicles, rsus := Resolve(f.NewVehicles(40), f.NewRSUs(10), time.Now(), Options{})
	for _, v := range vehicles {
		want := map[string]bool{}
		for _, r := range rsus {
			if geo.Distance(v.Position, r.Position) <= r.RangeM {
				want[r.ID] = true
			}
		}
		if len(want) != len(v.ConnectedRSUs) {
			t.Fatalf("%s: want %d rsus, got %d", v.ID, len(want), len(v.ConnectedRSUs))
		}
		for _, id := range v.ConnectedRSUs {
			if !want[id] {
				t.Fatalf("%s: unexpected rsu %s", v.ID, id)
			}
		}
	}
	for _, r := range rsus {
		for _, vid := range r.ConnectedVehicles {
			found := false
			for _, v := range vehicles {
				if v.ID != vid {
					continue
				}
				for _, rid := range v.ConnectedRSUs {
					found = found || rid == r.ID
				}
			}
			if !found {
				t.Fatalf("%s lists %s but not symmetric", r.ID, vid)
			}
		}
	}
}

package threat

var descriptions = map[Category][]string{
	GPSSpoofing: {
		"Vehicle reporting coordinates outside physical road network",
		"GPS coordinates jumping beyond maximum vehicle acceleration",
		"Position data inconsistent with nearby vehicle reports",
	},
	MessageFlooding: {
		"Beacon transmission rate exceeding protocol limits",
		"Duplicate message IDs from same source detected",
		"Network congestion caused by excessive messaging",
	},
	ReplayAttack: {
		"Identical message signatures detected from different timestamps",
		"Previously seen beacon replayed after extended delay",
		"Message replay pattern consistent with attack scenario",
	},
	PositionFalsification: {
		"Reported position conflicts with movement physics",
		"Vehicle claiming to be in multiple locations simultaneously",
		"Speed and direction changes violate kinematic constraints",
	},
	DoSAttack: {
		"Network resources overwhelmed by malicious traffic",
		"Communication channels saturated with invalid requests",
		"RSU processing capacity exceeded by attack vectors",
	},
}

// Descriptions returns the phrase pool for c.
func Descriptions(c Category) []string {
	return append([]string(nil), descriptions[c]...)
}

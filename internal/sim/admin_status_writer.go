package sim

// AdminStatusWriter allows writers to receive admin API status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

// Controller is the command surface the simulator exposes to interactive
// writers such as the terminal console.
type Controller interface {
	ToggleRun() bool
	Reset()
	DismissThreat(id string) bool
	MitigateThreat(id string) bool
	RemediateVehicle(id string) bool
}

// ControllerSetter lets a writer receive the simulator's command surface.
type ControllerSetter interface {
	SetController(Controller)
}

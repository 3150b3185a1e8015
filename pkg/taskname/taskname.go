package taskname

const (
	// License tasks
	LicenseTrialTracker = "license:trial:tracker"
)

package controller

// Detector reports whether the application runs in an installed
// (standalone) context and whether this platform family requires
// installation before notification permission may be requested.
type Detector interface {
	Installed() bool
	RequiresInstall() bool
}

// StandaloneFlagDetector detects installation through the dedicated
// standalone flag of the platform family that also gates permission
// requests on installation.
type StandaloneFlagDetector struct {
	// Standalone is the platform's navigator standalone flag.
	Standalone bool
}

// Installed implements Detector.
func (d StandaloneFlagDetector) Installed() bool { return d.Standalone }

// RequiresInstall implements Detector.
func (d StandaloneFlagDetector) RequiresInstall() bool { return true }

// DisplayModeDetector detects installation through a display-mode media
// query. Permission may be requested from a plain browser tab on this
// platform family.
type DisplayModeDetector struct {
	// Matches evaluates a display-mode media query against the host.
	Matches func(mode string) bool
}

// Installed implements Detector.
func (d DisplayModeDetector) Installed() bool {
	if d.Matches == nil {
		return false
	}
	return d.Matches("standalone")
}

// RequiresInstall implements Detector.
func (d DisplayModeDetector) RequiresInstall() bool { return false }

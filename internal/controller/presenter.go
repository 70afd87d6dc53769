package controller

import "github.com/avdushin/pushdeck/internal/models"

// Named presentation regions the controller toggles. The presentation
// layer owns their rendering; the controller only assumes they exist.
const (
	RegionInstallHint = "install-hint"
	RegionEnable      = "enable-button"
	RegionDisable     = "disable-button"
	RegionStatus      = "status-text"
	RegionDeniedHelp  = "denied-help"
)

// Presenter is the presentation layer the controller mutates. Flash
// messages are transient and self-clear after a fixed delay owned by the
// implementation.
type Presenter interface {
	Show(region string)
	Hide(region string)
	SetText(region, text string)
	Flash(text string)
}

// NopPresenter discards all presentation updates.
type NopPresenter struct{}

func (NopPresenter) Show(string)            {}
func (NopPresenter) Hide(string)            {}
func (NopPresenter) SetText(string, string) {}
func (NopPresenter) Flash(string)           {}

// SyncPresentation re-derives installation and permission status from the
// platform and updates the fixed region set. It is idempotent and invoked
// after every state-changing operation and whenever the application
// becomes visible again.
func (c *Controller) SyncPresentation() {
	c.state.Installed = c.detector.Installed()
	c.state.Permission = c.notifs.Permission()
	if sub, err := c.push.Subscription(); err == nil {
		c.state.Subscription = sub
	}

	if c.state.Installed {
		c.presenter.Hide(RegionInstallHint)
	} else {
		c.presenter.Show(RegionInstallHint)
	}

	switch {
	case c.state.Permission == models.PermissionGranted && c.state.Subscription != nil:
		c.presenter.Hide(RegionEnable)
		c.presenter.Show(RegionDisable)
		c.presenter.Hide(RegionDeniedHelp)
		c.presenter.SetText(RegionStatus, "Notifications are on.")
	case c.state.Permission == models.PermissionGranted:
		c.presenter.Show(RegionEnable)
		c.presenter.Hide(RegionDisable)
		c.presenter.Hide(RegionDeniedHelp)
		c.presenter.SetText(RegionStatus, "Notifications are allowed but not enabled.")
	case c.state.Permission == models.PermissionDenied:
		c.presenter.Hide(RegionEnable)
		c.presenter.Hide(RegionDisable)
		c.presenter.Show(RegionDeniedHelp)
		c.presenter.SetText(RegionStatus, "Notifications are blocked.")
	default:
		c.presenter.Show(RegionEnable)
		c.presenter.Hide(RegionDisable)
		c.presenter.Hide(RegionDeniedHelp)
		c.presenter.SetText(RegionStatus, "Notifications are off.")
	}
}

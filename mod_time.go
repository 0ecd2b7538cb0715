package deform

import (
	"time"
)

type Time struct {
	Time time.Time
	Dt   time.Duration

	// When non-zero every frame advances by exactly Fixed instead of wall time.
	Fixed time.Duration
}

type TimeModule struct {
	Fixed time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time:  time.Now(),
		Dt:    0,
		Fixed: mod.Fixed,
	})
	app.UseSystem(System(timeSystem).InStage(PreUpdate))
}

func timeSystem(timeResource *Time) {
	if timeResource.Fixed > 0 {
		timeResource.Dt = timeResource.Fixed
		timeResource.Time = timeResource.Time.Add(timeResource.Fixed)
		return
	}

	now := time.Now()

	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Time = now
}

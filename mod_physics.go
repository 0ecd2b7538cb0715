package deform

// DeformModule installs a Scene and steps it in the Update stage with the
// frame time from TimeModule, which must be installed as well.
type DeformModule struct {
	Scene *Scene
}

func (m DeformModule) Install(app *App, cmd *Commands) {
	scene := m.Scene
	if scene == nil {
		scene = NewScene()
	}
	cmd.AddResources(scene)

	app.UseSystem(
		System(DeformSystem).
			InStage(Update),
	)
}

func DeformSystem(cmd *Commands, time *Time, scene *Scene) {
	if err := scene.Update(time.Dt); err != nil {
		cmd.Logger().Errorf("frame %d: %v", cmd.Frame(), err)
	}
}

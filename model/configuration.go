package model

// Configuration has no persisted state of its own: it exposes the
// save/load/reset-to-defaults operations (delegated to the peer) plus a
// transient "currently saving" flag used to suppress overlapping save
// requests and to drive the ConfigurationSavingNotification.
type Configuration struct {
	saving bool
}

// NewConfiguration returns a Configuration not currently saving.
func NewConfiguration() Configuration { return Configuration{} }

// IsSaving reports whether a save-to-backup is in progress.
func (c Configuration) IsSaving() bool { return c.saving }

// BeginSaving marks a save as in progress.
func (c *Configuration) BeginSaving() error {
	if c.saving {
		return ErrValueAlreadySet
	}
	c.saving = true
	return nil
}

// EndSaving marks a save as complete.
func (c *Configuration) EndSaving() error {
	if !c.saving {
		return ErrValueAlreadySet
	}
	c.saving = false
	return nil
}

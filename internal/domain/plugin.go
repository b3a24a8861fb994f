package domain

import "time"

type Plugin struct {
	UID          string       `json:"uid" validate:"required,max=200"`
	Name         string       `json:"name" validate:"required,max=200"`
	Manufacturer string       `json:"manufacturer" validate:"max=200"`
	Format       PluginFormat `json:"format" validate:"required,oneof=vst3 au aax clap"`
	Version      string       `json:"version,omitempty" validate:"max=40"`
}

type PluginList struct {
	UserID   string    `json:"user_id"`
	Plugins  []Plugin  `json:"plugins"`
	SyncedAt time.Time `json:"synced_at"`
}

type SyncPluginsRequest struct {
	Plugins []Plugin `json:"plugins" validate:"required,max=5000,dive"`
}

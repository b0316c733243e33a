// Package statechange implements the tagged-union state-change
// notifications object controllers emit when a model mutation actually
// changes something (never on a setter that reports "unchanged").
package statechange

import "github.com/gerickson-labs/hlxgo/model"

// Kind discriminates the property a Notification describes. One Kind
// exists per mutated property per family (per SPEC_FULL.md §3.1), not one
// coalesced "entity changed" event.
type Kind string

// Notification kinds, grouped by family.
const (
	KindZonesVolume          Kind = "ZonesVolume"
	KindZonesMute            Kind = "ZonesMute"
	KindZonesSource          Kind = "ZonesSource"
	KindZonesName            Kind = "ZonesName"
	KindZonesTone            Kind = "ZonesTone"
	KindZonesBalance         Kind = "ZonesBalance"
	KindZonesSoundMode       Kind = "ZonesSoundMode"
	KindZonesEqualizerBand   Kind = "ZonesEqualizerBand"
	KindZonesEqualizerPreset Kind = "ZonesEqualizerPreset"
	KindZonesCrossover       Kind = "ZonesCrossover"

	KindGroupsName    Kind = "GroupsName"
	KindGroupsZones   Kind = "GroupsZones"
	KindGroupsSources Kind = "GroupsSources"

	KindSourcesName   Kind = "SourcesName"
	KindFavoritesName Kind = "FavoritesName"

	KindEqualizerPresetsName      Kind = "EqualizerPresetsName"
	KindEqualizerPresetsBandLevel Kind = "EqualizerPresetsBandLevel"

	KindFrontPanelBrightness Kind = "FrontPanelBrightness"
	KindFrontPanelLocked     Kind = "FrontPanelLocked"

	KindNetworkDHCPv4Enabled Kind = "NetworkDHCPv4Enabled"
	KindNetworkMAC           Kind = "NetworkMAC"
	KindNetworkHostAddress   Kind = "NetworkHostAddress"
	KindNetworkNetmask       Kind = "NetworkNetmask"
	KindNetworkRouter        Kind = "NetworkRouter"
	KindNetworkSDDPEnabled   Kind = "NetworkSDDPEnabled"

	KindInfraredDisabled Kind = "InfraredDisabled"

	KindConfigurationSaving Kind = "ConfigurationSaving"
	KindConfigurationSaved  Kind = "ConfigurationSaved"
	KindConfigurationLoaded Kind = "ConfigurationLoaded"
	KindConfigurationReset  Kind = "ConfigurationReset"
)

// Notification is the tagged-union event emitted by an object controller.
// Only the fields relevant to Kind are populated; callers type-switch on
// Kind rather than on a Go interface, matching the wire protocol's own
// flat, single-property-per-frame shape.
type Notification struct {
	Kind Kind
	ID   model.Identifier // zone/group/source/favorite/preset identifier; zero where not applicable

	Bool  bool
	Int   int64
	Str   string
	Ids   []model.Identifier
	Index model.EqualizerBandIndex
	Mode  model.SoundMode
}

// Observer receives state-change notifications. Implementations must not
// block for long: the controller goroutine delivering the notification is
// also the one driving model mutation and wire dispatch.
type Observer interface {
	StateDidChange(Notification)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(Notification)

// StateDidChange implements Observer.
func (f ObserverFunc) StateDidChange(n Notification) { f(n) }

// Notifier fans a Notification out to every subscribed Observer, in
// subscription order; a panic in one observer is not caught here, the
// same way a controller's synchronous model-mutation is not caught —
// callers should not register observers that can panic.
type Notifier struct {
	observers []Observer
}

// Subscribe registers an observer.
func (n *Notifier) Subscribe(o Observer) {
	n.observers = append(n.observers, o)
}

// Emit delivers note to every subscribed observer.
func (n *Notifier) Emit(note Notification) {
	for _, o := range n.observers {
		o.StateDidChange(note)
	}
}

package command

import "github.com/gerickson-labs/hlxgo/rxmatch"

// Entry binds a name to a compiled regex for the Command Manager's
// dispatch table. Patterns are grounded on
// CommandZonesRegularExpressionBases.cpp for the zones family (verbatim,
// down to the POSIX character classes) and generalized analogously for
// every other family per §6.3's "analogous regexes" note.
type Entry struct {
	Name    string
	Matcher *rxmatch.Matcher
}

// anchored compiles pattern with a leading "^", so every table entry
// matches only at the start of a frame's stripped payload. The original
// C++ matcher searches unanchored within the whole bracketed buffer,
// which is safe there because the zones table is the only family in
// play; once groups/sources/favorites/presets/front-panel/network/
// configuration commands share one dispatch table, an unanchored search
// can find a shorter family's pattern embedded inside a longer one
// (e.g. "QO" inside "GQO"). Anchoring at offset zero removes that hazard
// without changing any individual pattern's grammar.
func anchored(pattern string) *rxmatch.Matcher {
	return rxmatch.MustCompile("^" + pattern)
}

// Zone regex names.
const (
	NameZonesBalance          = "ZonesBalance"
	NameZonesEqualizerBand    = "ZonesEqualizerBand"
	NameZonesEqualizerPreset  = "ZonesEqualizerPreset"
	NameZonesHighpass         = "ZonesHighpass"
	NameZonesLowpass          = "ZonesLowpass"
	NameZonesMute             = "ZonesMute"
	NameZonesName             = "ZonesName"
	NameZonesQuery            = "ZonesQuery"
	NameZonesSoundMode        = "ZonesSoundMode"
	NameZonesSource           = "ZonesSource"
	NameZonesSourceAll        = "ZonesSourceAll"
	NameZonesToggleMute       = "ZonesToggleMute"
	NameZonesTone             = "ZonesTone"
	NameZonesVolume           = "ZonesVolume"
	NameZonesVolumeAll        = "ZonesVolumeAll"
	NameZonesVolumeFixed      = "ZonesVolumeFixed"
)

// ZoneTable is the authoritative zones regex table, verbatim against
// CommandZonesRegularExpressionBases.cpp.
func ZoneTable() []Entry {
	return []Entry{
		{NameZonesBalance, anchored(`BO([[:digit:]]+)([RL])([[:digit:]]+)`)},
		{NameZonesEqualizerBand, anchored(`EO([[:digit:]]+)B([[:digit:]]+)L(-?[[:digit:]]+)`)},
		{NameZonesEqualizerPreset, anchored(`EO([[:digit:]]+)P([[:digit:]]+)`)},
		{NameZonesHighpass, anchored(`EO([[:digit:]]+)HP([[:digit:]]+)`)},
		{NameZonesLowpass, anchored(`EO([[:digit:]]+)LP([[:digit:]]+)`)},
		{NameZonesMute, anchored(`V([U]?M)O([[:digit:]]+)`)},
		{NameZonesName, anchored(`NO([[:digit:]]+)"([[:print:]]+)"`)},
		{NameZonesQuery, anchored(`QO([[:digit:]]+)`)},
		{NameZonesSoundMode, anchored(`EO([[:digit:]]+)M([[:digit:]]+)`)},
		{NameZonesSource, anchored(`CO([[:digit:]]+)I([[:digit:]]+)`)},
		{NameZonesSourceAll, anchored(`CXI([[:digit:]]+)`)},
		{NameZonesToggleMute, anchored(`VMTO([[:digit:]]+)`)},
		{NameZonesTone, anchored(`TO([[:digit:]]+)B(-?[[:digit:]]+)T(-?[[:digit:]]+)`)},
		{NameZonesVolume, anchored(`VO([[:digit:]]+)R(-?[[:digit:]]+)`)},
		{NameZonesVolumeAll, anchored(`VXR(-?[[:digit:]]+)`)},
		{NameZonesVolumeFixed, anchored(`VO([[:digit:]]+)F([01])`)},
	}
}

// Group regex names.
const (
	NameGroupsName      = "GroupsName"
	NameGroupsQuery     = "GroupsQuery"
	NameGroupsAddZone   = "GroupsAddZone"
	NameGroupsRemoveZone = "GroupsRemoveZone"
	NameGroupsAddSource = "GroupsAddSource"
	NameGroupsRemoveSource = "GroupsRemoveSource"
)

// GroupTable is the groups family's regex table, analogous to ZoneTable
// (§6.3: "Analogous regexes for groups, sources, favorites, equalizer
// presets, front panel, network, and configuration").
func GroupTable() []Entry {
	return []Entry{
		{NameGroupsName, anchored(`GNO([[:digit:]]+)"([[:print:]]+)"`)},
		{NameGroupsQuery, anchored(`GQO([[:digit:]]+)`)},
		{NameGroupsAddZone, anchored(`GO([[:digit:]]+)AZ([[:digit:]]+)`)},
		{NameGroupsRemoveZone, anchored(`GO([[:digit:]]+)RZ([[:digit:]]+)`)},
		{NameGroupsAddSource, anchored(`GO([[:digit:]]+)AS([[:digit:]]+)`)},
		{NameGroupsRemoveSource, anchored(`GO([[:digit:]]+)RS([[:digit:]]+)`)},
	}
}

// Source regex names.
const (
	NameSourcesName  = "SourcesName"
	NameSourcesQuery = "SourcesQuery"
)

// SourceTable is the sources family's regex table.
func SourceTable() []Entry {
	return []Entry{
		{NameSourcesName, anchored(`SNO([[:digit:]]+)"([[:print:]]+)"`)},
		{NameSourcesQuery, anchored(`SQO([[:digit:]]+)`)},
	}
}

// Favorite regex names.
const (
	NameFavoritesName  = "FavoritesName"
	NameFavoritesQuery = "FavoritesQuery"
)

// FavoriteTable is the favorites family's regex table.
func FavoriteTable() []Entry {
	return []Entry{
		{NameFavoritesName, anchored(`FNO([[:digit:]]+)"([[:print:]]+)"`)},
		{NameFavoritesQuery, anchored(`FQO([[:digit:]]+)`)},
	}
}

// Equalizer preset regex names.
const (
	NameEqualizerPresetsName      = "EqualizerPresetsName"
	NameEqualizerPresetsBandLevel = "EqualizerPresetsBandLevel"
	NameEqualizerPresetsQuery     = "EqualizerPresetsQuery"
)

// EqualizerPresetTable is the equalizer-presets family's regex table.
func EqualizerPresetTable() []Entry {
	return []Entry{
		{NameEqualizerPresetsName, anchored(`XNO([[:digit:]]+)"([[:print:]]+)"`)},
		{NameEqualizerPresetsBandLevel, anchored(`XO([[:digit:]]+)B([[:digit:]]+)L(-?[[:digit:]]+)`)},
		{NameEqualizerPresetsQuery, anchored(`XQO([[:digit:]]+)`)},
	}
}

// Front panel regex names, using the literal grammar spec.md §6.3 gives
// verbatim: "FPB<level>", "FPL<0|1>".
const (
	NameFrontPanelBrightness      = "FrontPanelBrightness"
	NameFrontPanelLocked          = "FrontPanelLocked"
	NameFrontPanelQueryBrightness = "FrontPanelQueryBrightness"
	NameFrontPanelQueryLocked     = "FrontPanelQueryLocked"
)

// FrontPanelTable is the front panel's regex table.
func FrontPanelTable() []Entry {
	return []Entry{
		{NameFrontPanelBrightness, anchored(`FPB([[:digit:]]+)`)},
		{NameFrontPanelLocked, anchored(`FPL([01])`)},
		{NameFrontPanelQueryBrightness, anchored(`QFPB`)},
		{NameFrontPanelQueryLocked, anchored(`QFPL`)},
	}
}

// Network regex names.
const (
	NameNetworkDHCPv4 = "NetworkDHCPv4"
	NameNetworkHost   = "NetworkHost"
	NameNetworkNetmask = "NetworkNetmask"
	NameNetworkRouter = "NetworkRouter"
	NameNetworkSDDP   = "NetworkSDDP"
	NameNetworkQuery  = "NetworkQuery"
)

// NetworkTable is the network family's regex table.
func NetworkTable() []Entry {
	return []Entry{
		{NameNetworkDHCPv4, anchored(`WDHCP([01])`)},
		{NameNetworkHost, anchored(`WIP"([[:print:]]+)"`)},
		{NameNetworkNetmask, anchored(`WNM"([[:print:]]+)"`)},
		{NameNetworkRouter, anchored(`WGW"([[:print:]]+)"`)},
		{NameNetworkSDDP, anchored(`WSDDP([01])`)},
		{NameNetworkQuery, anchored(`QW`)},
	}
}

// Infrared regex names.
const (
	NameInfraredDisabled = "InfraredDisabled"
	NameInfraredQuery    = "InfraredQuery"
)

// InfraredTable is the infrared family's regex table.
func InfraredTable() []Entry {
	return []Entry{
		{NameInfraredDisabled, anchored(`IRD([01])`)},
		{NameInfraredQuery, anchored(`QIR`)},
	}
}

// Configuration regex names. "QX" is given verbatim in §6.3; the
// save/saving/load/reset commands are named analogously.
const (
	NameConfigurationQuery  = "ConfigurationQuery"
	NameConfigurationSave   = "ConfigurationSave"
	NameConfigurationSaving = "ConfigurationSaving"
	NameConfigurationLoad   = "ConfigurationLoad"
	NameConfigurationReset  = "ConfigurationReset"
)

// ConfigurationTable is the configuration family's regex table.
func ConfigurationTable() []Entry {
	return []Entry{
		{NameConfigurationQuery, anchored(`QX`)},
		// CSAVE must be end-anchored: unanchored it is a prefix of
		// CSAVING, so a client-role Save() exchange would wrongly
		// complete on the transient (CSAVING) frame that always
		// precedes the real (CSAVE) terminator.
		{NameConfigurationSave, anchored(`CSAVE$`)},
		{NameConfigurationSaving, anchored(`CSAVING`)},
		{NameConfigurationLoad, anchored(`CLOAD`)},
		{NameConfigurationReset, anchored(`CRESET`)},
	}
}

// AllTables returns every family's table in the order the Top-Level
// Controller refreshes them (§4.9).
func AllTables() [][]Entry {
	return [][]Entry{
		ZoneTable(),
		GroupTable(),
		SourceTable(),
		FavoriteTable(),
		EqualizerPresetTable(),
		FrontPanelTable(),
		NetworkTable(),
		InfraredTable(),
		ConfigurationTable(),
	}
}

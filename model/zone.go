package model

import "fmt"

// ZoneIdentifierMax is the highest valid zone identifier.
const ZoneIdentifierMax = 32

// SoundMode selects which audio shaping stage a zone applies.
type SoundMode uint8

// Sound modes.
const (
	SoundModeDisabled SoundMode = iota
	SoundModeZoneEqualizer
	SoundModePresetEqualizer
	SoundModeTone
	SoundModeLowpass
	SoundModeHighpass
)

// ChannelMode is the derived stereo/mono channel configuration of a zone.
type ChannelMode uint8

// Channel modes.
const (
	ChannelModeStereo ChannelMode = iota
	ChannelModeMono
)

// ChannelMode derives mono/stereo from the sound mode: only lowpass is mono.
func (m SoundMode) ChannelMode() ChannelMode {
	if m == SoundModeLowpass {
		return ChannelModeMono
	}
	return ChannelModeStereo
}

func validateSoundMode(mode SoundMode) error {
	if mode > SoundModeHighpass {
		return fmt.Errorf("sound mode %d invalid: %w", mode, ErrInvalidArgument)
	}
	return nil
}

// Zone is one addressable audio output region.
type Zone struct {
	id              Identifier
	name            string
	sourceID        Identifier
	volume          Volume
	tone            Tone
	balance         Balance
	soundMode       SoundMode
	equalizerBands  [EqualizerBandCount]EqualizerBand
	equalizerPreset Identifier
	crossover       Crossover
}

// NewZone returns a default-constructed zone with identifier id.
func NewZone(id Identifier) Zone {
	z := Zone{
		id:     id,
		name:   fmt.Sprintf("Zone %d", id),
		volume: NewVolume(),
		tone:   NewTone(),
		balance: NewBalance(),
		crossover: NewCrossover(),
	}
	for i := range z.equalizerBands {
		z.equalizerBands[i] = NewEqualizerBand(EqualizerBandIndex(i))
	}
	return z
}

// Identifier returns the zone's identifier.
func (z Zone) Identifier() Identifier { return z.id }

// Name returns the zone's name.
func (z Zone) Name() string { return z.name }

// SourceIdentifier returns the zone's selected source, or IdentifierInvalid
// if none is selected.
func (z Zone) SourceIdentifier() Identifier { return z.sourceID }

// Volume returns the zone's volume state.
func (z Zone) Volume() Volume { return z.volume }

// Tone returns the zone's tone state.
func (z Zone) Tone() Tone { return z.tone }

// Balance returns the zone's balance state.
func (z Zone) Balance() Balance { return z.balance }

// SoundMode returns the zone's current sound mode.
func (z Zone) SoundMode() SoundMode { return z.soundMode }

// EqualizerBand returns a copy of the zone's own equalizer band at idx
// (used when SoundMode is SoundModeZoneEqualizer).
func (z Zone) EqualizerBand(idx EqualizerBandIndex) (EqualizerBand, error) {
	if err := ValidateEqualizerBandIndex(idx); err != nil {
		return EqualizerBand{}, err
	}
	return z.equalizerBands[idx], nil
}

// EqualizerPresetIdentifier returns the zone's selected preset (used when
// SoundMode is SoundModePresetEqualizer).
func (z Zone) EqualizerPresetIdentifier() Identifier { return z.equalizerPreset }

// Crossover returns the zone's crossover filter state.
func (z Zone) Crossover() Crossover { return z.crossover }

// SetName renames the zone.
func (z *Zone) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if z.name == name {
		return ErrValueAlreadySet
	}
	z.name = name
	return nil
}

// SetSourceIdentifier selects a source for the zone.
func (z *Zone) SetSourceIdentifier(id Identifier) error {
	if z.sourceID == id {
		return ErrValueAlreadySet
	}
	z.sourceID = id
	return nil
}

// SetVolumeLevel is a convenience forwarding to Volume.SetLevel.
func (z *Zone) SetVolumeLevel(level int8) error { return z.volume.SetLevel(level) }

// IncreaseVolume forwards to Volume.Increase.
func (z *Zone) IncreaseVolume() error { return z.volume.Increase() }

// DecreaseVolume forwards to Volume.Decrease.
func (z *Zone) DecreaseVolume() error { return z.volume.Decrease() }

// SetVolumeMute forwards to Volume.SetMute.
func (z *Zone) SetVolumeMute(mute bool) error { return z.volume.SetMute(mute) }

// ToggleVolumeMute forwards to Volume.ToggleMute.
func (z *Zone) ToggleVolumeMute() bool { return z.volume.ToggleMute() }

// SetVolumeFixed forwards to Volume.SetFixed.
func (z *Zone) SetVolumeFixed(fixed bool) error { return z.volume.SetFixed(fixed) }

// SetTone forwards to Tone.Set.
func (z *Zone) SetTone(bass, treble int8) error { return z.tone.Set(bass, treble) }

// SetBalance forwards to Balance.SetOffset.
func (z *Zone) SetBalance(offset int8) error { return z.balance.SetOffset(offset) }

// SetLowpassHz forwards to Crossover.SetLowpassHz.
func (z *Zone) SetLowpassHz(hz uint16) error { return z.crossover.SetLowpassHz(hz) }

// SetHighpassHz forwards to Crossover.SetHighpassHz.
func (z *Zone) SetHighpassHz(hz uint16) error { return z.crossover.SetHighpassHz(hz) }

// SetSoundMode selects the zone's sound shaping mode.
func (z *Zone) SetSoundMode(mode SoundMode) error {
	if err := validateSoundMode(mode); err != nil {
		return err
	}
	if z.soundMode == mode {
		return ErrValueAlreadySet
	}
	z.soundMode = mode
	return nil
}

// SetEqualizerBandLevel sets one of the zone's own equalizer bands.
func (z *Zone) SetEqualizerBandLevel(idx EqualizerBandIndex, level int8) error {
	if err := ValidateEqualizerBandIndex(idx); err != nil {
		return err
	}
	return z.equalizerBands[idx].SetLevel(level)
}

// SetEqualizerPresetIdentifier selects the zone's equalizer preset.
func (z *Zone) SetEqualizerPresetIdentifier(id Identifier) error {
	if z.equalizerPreset == id {
		return ErrValueAlreadySet
	}
	z.equalizerPreset = id
	return nil
}

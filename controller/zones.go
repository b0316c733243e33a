package controller

import (
	"fmt"
	"time"

	"github.com/gerickson-labs/hlxgo/command"
	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/model"
	"github.com/gerickson-labs/hlxgo/rxmatch"
	"github.com/gerickson-labs/hlxgo/statechange"
)

// Zones owns the zone family's model slice, registers the zones regex
// table with a Command Manager in either role, and exposes the typed
// observer/mutator surface §4.8 requires.
type Zones struct {
	family   *model.Family[model.Zone]
	notifier *statechange.Notifier
}

// NewZones returns an uninitialized Zones controller; call Init before
// use.
func NewZones(notifier *statechange.Notifier) *Zones {
	return &Zones{
		family:   model.NewFamily(model.Identifier(model.ZoneIdentifierMax), model.NewZone),
		notifier: notifier,
	}
}

// Init populates one default-constructed Zone per identifier.
func (c *Zones) Init() { c.family.Init() }

// Zone returns the zone at id, or model.ErrNotInitialized/ErrOutOfRange.
func (c *Zones) Zone(id model.Identifier) (*model.Zone, error) { return c.family.Get(id) }

// ExpectedQueryCount is the number of QO<id> queries Refresh issues —
// one per zone identifier (§9 open question: this family counts
// queries issued, which here equals identifier count).
func (c *Zones) ExpectedQueryCount() int { return int(model.ZoneIdentifierMax) }

func volumeBody(id model.Identifier, v model.Volume) string {
	return fmt.Sprintf("VO%dR%d", id, v.Level())
}

func muteBody(id model.Identifier, mute bool) string {
	if mute {
		return fmt.Sprintf("VMO%d", id)
	}
	return fmt.Sprintf("VUMO%d", id)
}

func volumeFixedBody(id model.Identifier, fixed bool) string {
	return fmt.Sprintf("VO%dF%d", id, boolBit(fixed))
}

func sourceBody(id, src model.Identifier) string { return fmt.Sprintf("CO%dI%d", id, src) }

func nameBody(id model.Identifier, name string) string { return fmt.Sprintf(`NO%d"%s"`, id, name) }

func toneBody(id model.Identifier, t model.Tone) string {
	return fmt.Sprintf("TO%dB%dT%d", id, t.Bass(), t.Treble())
}

func balanceBody(id model.Identifier, b model.Balance) string {
	offset := b.Offset()
	if offset < 0 {
		offset = -offset
	}
	return fmt.Sprintf("BO%d%c%d", id, byte(b.Channel()), offset)
}

func soundModeBody(id model.Identifier, mode model.SoundMode) string {
	return fmt.Sprintf("EO%dM%d", id, mode)
}

func equalizerBandBody(id model.Identifier, band model.EqualizerBandIndex, level int8) string {
	return fmt.Sprintf("EO%dB%dL%d", id, band, level)
}

func equalizerPresetBody(id, preset model.Identifier) string { return fmt.Sprintf("EO%dP%d", id, preset) }

func highpassBody(id model.Identifier, hz uint16) string { return fmt.Sprintf("EO%dHP%d", id, hz) }

func lowpassBody(id model.Identifier, hz uint16) string { return fmt.Sprintf("EO%dLP%d", id, hz) }

// entries builds the shared dispatch table used by both RegisterServer
// and RegisterClient; every entry's mutate function applies a match to
// the model and emits a notification exactly when the model actually
// changed (§4.8 item 5).
func (c *Zones) entries() []dispatchEntry {
	return []dispatchEntry{
		{command.NameZonesVolume, command.ZoneTable()[13].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			level, err := parseInt8(m[1].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := z.SetVolumeLevel(level)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesVolume, ID: id, Int: int64(level)})
			}
			return volumeBody(id, z.Volume()), changed(setErr), nil
		}},
		{command.NameZonesVolumeAll, command.ZoneTable()[14].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			level, err := parseInt8(m[0].Text)
			if err != nil {
				return "", false, err
			}
			any := false
			walkErr := c.family.ForEach(func(id model.Identifier, z *model.Zone) error {
				setErr := z.SetVolumeLevel(level)
				if !ok(setErr) {
					return setErr
				}
				if changed(setErr) {
					any = true
					c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesVolume, ID: id, Int: int64(level)})
				}
				return nil
			})
			if walkErr != nil {
				return "", false, walkErr
			}
			return fmt.Sprintf("VXR%d", level), any, nil
		}},
		{command.NameZonesVolumeFixed, command.ZoneTable()[15].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			fixed := string(m[1].Text) == "1"
			setErr := z.SetVolumeFixed(fixed)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesVolume, ID: id, Bool: fixed})
			}
			return volumeFixedBody(id, z.Volume().IsFixed()), changed(setErr), nil
		}},
		{command.NameZonesMute, command.ZoneTable()[5].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[1].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			mute := string(m[0].Text) == "M"
			setErr := z.SetVolumeMute(mute)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesMute, ID: id, Bool: mute})
			}
			return muteBody(id, z.Volume().IsMuted()), changed(setErr), nil
		}},
		{command.NameZonesToggleMute, command.ZoneTable()[11].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			mute := z.ToggleVolumeMute()
			c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesMute, ID: id, Bool: mute})
			return muteBody(id, mute), true, nil
		}},
		{command.NameZonesSource, command.ZoneTable()[9].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			src, err := parseIdentifier(m[1].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := z.SetSourceIdentifier(src)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesSource, ID: id, Int: int64(src)})
			}
			return sourceBody(id, z.SourceIdentifier()), changed(setErr), nil
		}},
		{command.NameZonesSourceAll, command.ZoneTable()[10].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			src, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			any := false
			walkErr := c.family.ForEach(func(id model.Identifier, z *model.Zone) error {
				setErr := z.SetSourceIdentifier(src)
				if !ok(setErr) {
					return setErr
				}
				if changed(setErr) {
					any = true
					c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesSource, ID: id, Int: int64(src)})
				}
				return nil
			})
			if walkErr != nil {
				return "", false, walkErr
			}
			return fmt.Sprintf("CXI%d", src), any, nil
		}},
		{command.NameZonesName, command.ZoneTable()[6].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			name := string(m[1].Text)
			setErr := z.SetName(name)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesName, ID: id, Str: name})
			}
			return nameBody(id, z.Name()), changed(setErr), nil
		}},
		{command.NameZonesTone, command.ZoneTable()[12].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			bass, err := parseInt8(m[1].Text)
			if err != nil {
				return "", false, err
			}
			treble, err := parseInt8(m[2].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := z.SetTone(bass, treble)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesTone, ID: id})
			}
			return toneBody(id, z.Tone()), changed(setErr), nil
		}},
		{command.NameZonesBalance, command.ZoneTable()[0].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			magnitude, err := parseInt8(m[2].Text)
			if err != nil {
				return "", false, err
			}
			offset := magnitude
			if string(m[1].Text) == string(model.ChannelLeft) {
				offset = -magnitude
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := z.SetBalance(offset)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesBalance, ID: id, Int: int64(offset)})
			}
			return balanceBody(id, z.Balance()), changed(setErr), nil
		}},
		{command.NameZonesSoundMode, command.ZoneTable()[8].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			modeVal, err := parseUint8(m[1].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			mode := model.SoundMode(modeVal)
			setErr := z.SetSoundMode(mode)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesSoundMode, ID: id, Mode: mode})
			}
			return soundModeBody(id, z.SoundMode()), changed(setErr), nil
		}},
		{command.NameZonesEqualizerBand, command.ZoneTable()[1].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			band, err := parseBandIndex(m[1].Text)
			if err != nil {
				return "", false, err
			}
			level, err := parseInt8(m[2].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := z.SetEqualizerBandLevel(band, level)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesEqualizerBand, ID: id, Index: band, Int: int64(level)})
			}
			return equalizerBandBody(id, band, level), changed(setErr), nil
		}},
		{command.NameZonesEqualizerPreset, command.ZoneTable()[2].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			preset, err := parseIdentifier(m[1].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := z.SetEqualizerPresetIdentifier(preset)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesEqualizerPreset, ID: id, Int: int64(preset)})
			}
			return equalizerPresetBody(id, z.EqualizerPresetIdentifier()), changed(setErr), nil
		}},
		{command.NameZonesHighpass, command.ZoneTable()[3].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			hz, err := parseUint16(m[1].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := z.SetHighpassHz(hz)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesCrossover, ID: id, Int: int64(hz)})
			}
			return highpassBody(id, z.Crossover().HighpassHz()), changed(setErr), nil
		}},
		{command.NameZonesLowpass, command.ZoneTable()[4].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			hz, err := parseUint16(m[1].Text)
			if err != nil {
				return "", false, err
			}
			z, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := z.SetLowpassHz(hz)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindZonesCrossover, ID: id, Int: int64(hz)})
			}
			return lowpassBody(id, z.Crossover().LowpassHz()), changed(setErr), nil
		}},
	}
}

// RegisterServer wires every zones request handler into mgr (server
// role: a downstream client or test harness issuing [VO3R-25]-style
// requests against this controller's model).
func (c *Zones) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	if err := registerServer(mgr, connMgr, c.entries()); err != nil {
		return err
	}
	return mgr.RegisterRequestHandler(command.NameZonesQuery, command.ZoneTable()[7].Matcher, c.handleQuery)
}

// RegisterClient wires every zones regex as a notification handler into
// mgr (client role: unsolicited state-change frames from upstream
// hardware mutate this controller's local mirror).
func (c *Zones) RegisterClient(mgr *command.Manager) error {
	return registerClient(mgr, c.entries())
}

// handleQuery answers QO<id> by dumping every zone property as its own
// response frame, followed by a trailing echo of the query itself —
// the trailing frame is what a client-role Refresh correlates its
// exchange against, while the property frames in between are routed
// through the same notification handlers RegisterClient installs
// (§9's front-panel QFPL note documents one family where hardware omits
// this trailing echo; Zones does not have that defect).
func (c *Zones) handleQuery(conn *hlxconn.Connection, matches []rxmatch.Match) {
	id, err := parseIdentifier(matches[0].Text)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	z, err := c.family.Get(id)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	_ = conn.Send(command.WrapResponse(volumeBody(id, z.Volume())))
	_ = conn.Send(command.WrapResponse(muteBody(id, z.Volume().IsMuted())))
	_ = conn.Send(command.WrapResponse(volumeFixedBody(id, z.Volume().IsFixed())))
	_ = conn.Send(command.WrapResponse(sourceBody(id, z.SourceIdentifier())))
	_ = conn.Send(command.WrapResponse(nameBody(id, z.Name())))
	_ = conn.Send(command.WrapResponse(toneBody(id, z.Tone())))
	_ = conn.Send(command.WrapResponse(balanceBody(id, z.Balance())))
	_ = conn.Send(command.WrapResponse(soundModeBody(id, z.SoundMode())))
	_ = conn.Send(command.WrapResponse(highpassBody(id, z.Crossover().HighpassHz())))
	_ = conn.Send(command.WrapResponse(lowpassBody(id, z.Crossover().LowpassHz())))
	_ = conn.Send(command.WrapResponse(fmt.Sprintf("QO%d", id)))
}

// Refresh issues one QO<id> query per zone identifier in ascending
// order, invoking onComplete once per completion (nil on success, an
// error — possibly command.ErrTimeout — otherwise). The caller (the
// Top-Level Controller) aggregates completions into the shared refresh
// percentage.
func (c *Zones) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, onComplete func(error)) {
	for id := model.Identifier(1); id <= model.Identifier(model.ZoneIdentifierMax); id++ {
		_ = c.QueryOne(mgr, conn, id, timeout, func(_ []rxmatch.Match, err error) {
			onComplete(err)
		})
	}
}

// QueryOne issues a single QO<id> query, refreshing just that zone.
func (c *Zones) QueryOne(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf("QO%d", id), command.ZoneTable()[7].Matcher, timeout, completion)
}

// SetVolume issues a client-role VO<id>R<level> request upstream.
func (c *Zones) SetVolume(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, level int8, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf("VO%dR%d", id, level), command.ZoneTable()[13].Matcher, timeout, completion)
}

// SetMute issues a client-role mute/unmute request upstream.
func (c *Zones) SetMute(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, mute bool, timeout time.Duration, completion command.CompletionFunc) error {
	letter := "UM"
	if mute {
		letter = "M"
	}
	return mgr.SendCommand(conn, fmt.Sprintf("V%sO%d", letter, id), command.ZoneTable()[5].Matcher, timeout, completion)
}

// SetName issues a client-role zone-rename request upstream.
func (c *Zones) SetName(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, name string, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf(`NO%d"%s"`, id, name), command.ZoneTable()[6].Matcher, timeout, completion)
}

// SetSource issues a client-role source-selection request upstream.
func (c *Zones) SetSource(mgr *command.Manager, conn *hlxconn.Connection, id, src model.Identifier, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf("CO%dI%d", id, src), command.ZoneTable()[9].Matcher, timeout, completion)
}

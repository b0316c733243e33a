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

// EqualizerPresets owns the named, ten-band preset family zones can
// select via Zones.SetEqualizerPresetIdentifier.
type EqualizerPresets struct {
	family   *model.Family[model.EqualizerPreset]
	notifier *statechange.Notifier
}

// NewEqualizerPresets returns an uninitialized EqualizerPresets controller.
func NewEqualizerPresets(notifier *statechange.Notifier) *EqualizerPresets {
	return &EqualizerPresets{
		family:   model.NewFamily(model.Identifier(model.EqualizerPresetIdentifierMax), model.NewEqualizerPreset),
		notifier: notifier,
	}
}

// Init populates one default-named, flat preset per identifier.
func (c *EqualizerPresets) Init() { c.family.Init() }

// Preset returns the preset at id.
func (c *EqualizerPresets) Preset(id model.Identifier) (*model.EqualizerPreset, error) {
	return c.family.Get(id)
}

// ExpectedQueryCount is one XQO<id> query per preset identifier.
func (c *EqualizerPresets) ExpectedQueryCount() int { return int(model.EqualizerPresetIdentifierMax) }

func (c *EqualizerPresets) entries() []dispatchEntry {
	return []dispatchEntry{
		{command.NameEqualizerPresetsName, command.EqualizerPresetTable()[0].Matcher, func(m []rxmatch.Match) (string, bool, error) {
			id, err := parseIdentifier(m[0].Text)
			if err != nil {
				return "", false, err
			}
			p, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			name := string(m[1].Text)
			setErr := p.SetName(name)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindEqualizerPresetsName, ID: id, Str: name})
			}
			return fmt.Sprintf(`XNO%d"%s"`, id, p.Name()), changed(setErr), nil
		}},
		{command.NameEqualizerPresetsBandLevel, command.EqualizerPresetTable()[1].Matcher, func(m []rxmatch.Match) (string, bool, error) {
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
			p, err := c.family.Get(id)
			if err != nil {
				return "", false, err
			}
			setErr := p.SetBandLevel(band, level)
			if !ok(setErr) {
				return "", false, setErr
			}
			if changed(setErr) {
				c.notifier.Emit(statechange.Notification{Kind: statechange.KindEqualizerPresetsBandLevel, ID: id, Index: band, Int: int64(level)})
			}
			return fmt.Sprintf("XO%dB%dL%d", id, band, level), changed(setErr), nil
		}},
	}
}

// RegisterServer wires the equalizer-presets request handlers into mgr.
func (c *EqualizerPresets) RegisterServer(mgr *command.Manager, connMgr *hlxconn.Manager) error {
	if err := registerServer(mgr, connMgr, c.entries()); err != nil {
		return err
	}
	return mgr.RegisterRequestHandler(command.NameEqualizerPresetsQuery, command.EqualizerPresetTable()[2].Matcher, c.handleQuery)
}

// RegisterClient wires the equalizer-presets notification handlers into mgr.
func (c *EqualizerPresets) RegisterClient(mgr *command.Manager) error {
	return registerClient(mgr, c.entries())
}

func (c *EqualizerPresets) handleQuery(conn *hlxconn.Connection, matches []rxmatch.Match) {
	id, err := parseIdentifier(matches[0].Text)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	p, err := c.family.Get(id)
	if err != nil {
		_ = conn.Send(command.ErrorResponse)
		return
	}
	_ = conn.Send(command.WrapResponse(fmt.Sprintf(`XNO%d"%s"`, id, p.Name())))
	for i := model.EqualizerBandIndex(0); int(i) < model.EqualizerBandCount; i++ {
		band, _ := p.Band(i)
		_ = conn.Send(command.WrapResponse(fmt.Sprintf("XO%dB%dL%d", id, i, band.Level())))
	}
	_ = conn.Send(command.WrapResponse(fmt.Sprintf("XQO%d", id)))
}

// Refresh issues one XQO<id> query per preset identifier.
func (c *EqualizerPresets) Refresh(mgr *command.Manager, conn *hlxconn.Connection, timeout time.Duration, onComplete func(error)) {
	queryPattern := command.EqualizerPresetTable()[2].Matcher
	for id := model.Identifier(1); id <= model.Identifier(model.EqualizerPresetIdentifierMax); id++ {
		_ = mgr.SendCommand(conn, fmt.Sprintf("XQO%d", id), queryPattern, timeout, func(_ []rxmatch.Match, err error) {
			onComplete(err)
		})
	}
}

// SetName issues a client-role preset-rename request upstream.
func (c *EqualizerPresets) SetName(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, name string, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf(`XNO%d"%s"`, id, name), command.EqualizerPresetTable()[0].Matcher, timeout, completion)
}

// SetBandLevel issues a client-role band-level request upstream.
func (c *EqualizerPresets) SetBandLevel(mgr *command.Manager, conn *hlxconn.Connection, id model.Identifier, band model.EqualizerBandIndex, level int8, timeout time.Duration, completion command.CompletionFunc) error {
	return mgr.SendCommand(conn, fmt.Sprintf("XO%dB%dL%d", id, band, level), command.EqualizerPresetTable()[1].Matcher, timeout, completion)
}

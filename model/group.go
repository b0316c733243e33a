package model

import "fmt"

// GroupIdentifierMax is the highest valid group identifier.
const GroupIdentifierMax = 20

// Group is a named set of zones (and associated sources) controlled as one.
type Group struct {
	id      Identifier
	name    string
	zones   *IdentifiersCollection
	sources *IdentifiersCollection
}

// NewGroup returns a default-constructed, empty group with identifier id.
func NewGroup(id Identifier) Group {
	return Group{
		id:      id,
		name:    fmt.Sprintf("Group %d", id),
		zones:   NewIdentifiersCollection(),
		sources: NewIdentifiersCollection(),
	}
}

// Identifier returns the group's identifier.
func (g Group) Identifier() Identifier { return g.id }

// Name returns the group's name.
func (g Group) Name() string { return g.name }

// Zones returns the group's member zone identifiers.
func (g Group) Zones() []Identifier { return g.zones.Identifiers() }

// Sources returns the group's member source identifiers.
func (g Group) Sources() []Identifier { return g.sources.Identifiers() }

// SetName renames the group.
func (g *Group) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if g.name == name {
		return ErrValueAlreadySet
	}
	g.name = name
	return nil
}

// AddZone adds a zone to the group's membership.
func (g *Group) AddZone(id Identifier) error { return g.zones.Add(id) }

// RemoveZone removes a zone from the group's membership.
func (g *Group) RemoveZone(id Identifier) error { return g.zones.Remove(id) }

// SetZones replaces the group's zone membership wholesale.
func (g *Group) SetZones(ids []Identifier) error { return g.zones.SetIdentifiers(ids) }

// AddSource adds a source to the group's membership.
func (g *Group) AddSource(id Identifier) error { return g.sources.Add(id) }

// RemoveSource removes a source from the group's membership.
func (g *Group) RemoveSource(id Identifier) error { return g.sources.Remove(id) }

// SetSources replaces the group's source membership wholesale.
func (g *Group) SetSources(ids []Identifier) error { return g.sources.SetIdentifiers(ids) }

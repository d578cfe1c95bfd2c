// Package catalog holds the static instrument definitions for the three
// supported appraisal tools and builds empty checklists from them. All
// catalog data is immutable; lookups fail only for unknown instruments.
package catalog

import (
	"errors"
	"fmt"

	"github.com/corates/corates/internal/models"
)

// ErrUnknownInstrument is returned when a caller asks for an instrument the
// catalog does not define.
var ErrUnknownInstrument = errors.New("unknown instrument")

// SubQuestion is one yes/no sub-question of a quality-tool item. Partial
// marks membership in the subset that is sufficient for a Partial Yes item
// rating.
type SubQuestion struct {
	ID      string
	Label   string
	Partial bool
}

// ItemDef defines one quality-tool item: its sub-questions, whether a
// failure counts as a critical flaw, and reviewer guidance.
type ItemDef struct {
	ID           string
	Label        string
	Guidance     string
	Critical     bool
	SubQuestions []SubQuestion
}

// HasPartial reports whether the item defines a Partial Yes subset.
func (d ItemDef) HasPartial() bool {
	for _, sq := range d.SubQuestions {
		if sq.Partial {
			return true
		}
	}
	return false
}

// SignallingQuestion is one risk-of-bias signalling question. Optional
// questions are conditional follow-ups that do not gate domain completeness.
type SignallingQuestion struct {
	ID       string
	Label    string
	Optional bool
}

// DomainDef defines one risk-of-bias domain and its signalling questions.
type DomainDef struct {
	ID        string
	Label     string
	Guidance  string
	Questions []SignallingQuestion
}

// InstrumentDef is the full declarative definition of one instrument.
// Quality-tool instruments populate Items; risk-of-bias instruments
// populate Domains.
type InstrumentDef struct {
	Instrument models.InstrumentType
	Name       string
	Items      []ItemDef
	Domains    []DomainDef
}

// ItemDef returns the definition for the given item id, or false.
func (d *InstrumentDef) ItemDef(id string) (ItemDef, bool) {
	for _, item := range d.Items {
		if item.ID == id {
			return item, true
		}
	}
	return ItemDef{}, false
}

// DomainDef returns the definition for the given domain id, or false.
func (d *InstrumentDef) DomainDef(id string) (DomainDef, bool) {
	for _, dom := range d.Domains {
		if dom.ID == id {
			return dom, true
		}
	}
	return DomainDef{}, false
}

// UnitIDs returns the ordered item ids (quality tool) or domain ids
// (risk-of-bias tools). This is the canonical ordering used by scoring
// results and comparison reports.
func (d *InstrumentDef) UnitIDs() []string {
	if len(d.Items) > 0 {
		ids := make([]string, len(d.Items))
		for i, item := range d.Items {
			ids[i] = item.ID
		}
		return ids
	}
	ids := make([]string, len(d.Domains))
	for i, dom := range d.Domains {
		ids[i] = dom.ID
	}
	return ids
}

// Definition returns the immutable catalog definition for an instrument.
func Definition(t models.InstrumentType) (*InstrumentDef, error) {
	switch t {
	case models.InstrumentAmstar2:
		return amstar2Def, nil
	case models.InstrumentRobinsI:
		return robinsDef, nil
	case models.InstrumentRob2:
		return rob2Def, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownInstrument, t)
}

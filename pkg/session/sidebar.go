package session

import (
	"fmt"

	"github.com/ritzau/mutual-graph/pkg/profile"
	"github.com/ritzau/mutual-graph/pkg/selection"
)

const (
	// MaxSidebarEntries caps the names listed per source block.
	MaxSidebarEntries = 200

	// NoMutualsMessage is shown when no source lists a known mutual.
	NoMutualsMessage = "No mutuals for this user in the loaded sources."
)

// MutualEntry is one listed mutual. Name is the identity itself when no
// genuine name is known.
type MutualEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MutualBlock lists the mutuals of a person as reported by one source.
type MutualBlock struct {
	Source  string        `json:"source"` // Display label of the source
	File    string        `json:"file"`
	Count   int           `json:"count"` // All known mutuals, even beyond the listed ones
	Mutuals []MutualEntry `json:"mutuals"`
}

// Sidebar is the per-source breakdown of one person's mutuals.
type Sidebar struct {
	ID     string        `json:"id"`
	Label  string        `json:"label"`
	Blocks []MutualBlock `json:"blocks"`
	Empty  string        `json:"empty,omitempty"`
}

// Mutuals groups the mutuals of id by source. Only mutuals with a merged
// record are listed and sources without any are skipped.
func (s *Session) Mutuals(id string) (*Sidebar, error) {
	node, ok := s.Graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", selection.ErrUnknownNode, id)
	}

	out := &Sidebar{ID: id, Label: node.Label, Blocks: []MutualBlock{}}
	for _, src := range s.Sources {
		info := src.Records[id]
		if info == nil {
			continue
		}

		var known []string
		for _, m := range info.Mutual {
			if s.Canonical.Has(m) {
				known = append(known, m)
			}
		}
		if len(known) == 0 {
			continue
		}

		listed := known
		if len(listed) > MaxSidebarEntries {
			listed = listed[:MaxSidebarEntries]
		}
		entries := make([]MutualEntry, len(listed))
		for i, m := range listed {
			entries[i] = MutualEntry{ID: m, Name: s.displayName(m)}
		}

		out.Blocks = append(out.Blocks, MutualBlock{
			Source:  s.sourceLabel(src.Base),
			File:    src.File,
			Count:   len(known),
			Mutuals: entries,
		})
	}

	if len(out.Blocks) == 0 {
		out.Empty = NoMutualsMessage
	}
	return out, nil
}

func (s *Session) displayName(id string) string {
	if rec := s.Canonical.Get(id); rec != nil && rec.Name != "" && rec.Name != id {
		return rec.Name
	}
	return id
}

// sourceLabel names a source by its origin's merged name when the file is
// named after an identity.
func (s *Session) sourceLabel(base string) string {
	if profile.LooksLikeIdentity(base) {
		if name := s.displayName(base); name != base {
			return name
		}
	}
	return base
}

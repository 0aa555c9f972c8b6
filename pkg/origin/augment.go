// Package origin detects which identity an export was taken from.
//
// An export lists the friends of one account but usually not the account
// itself. When several exports are loaded together the file names tell us
// whose they are, and the origin is connected to every person in its export
// so the merged graph links the exports to each other.
package origin

import (
	"fmt"

	"github.com/ritzau/mutual-graph/pkg/logging"
	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/profile"
)

var log = logging.New("origin")

// Outcome tells how a single source was treated.
type Outcome int

const (
	// Unchanged means no origin could be identified.
	Unchanged Outcome = iota
	// Extended means the base name was already a key and its record was
	// connected to every other key.
	Extended
	// Synthesized means a record was created for the base name.
	Synthesized
)

func (o Outcome) String() string {
	switch o {
	case Extended:
		return "extended"
	case Synthesized:
		return "synthesized"
	default:
		return "unchanged"
	}
}

// Augment returns the sources with origin records ensured, plus the set of
// detected origins. With fewer than two sources nothing is detected and the
// input is returned as is. The input sources are never modified.
func Augment(sources []*model.Source) ([]*model.Source, model.RootSet) {
	roots := model.NewRootSet()
	if len(sources) < 2 {
		return sources, roots
	}

	out := make([]*model.Source, len(sources))
	for i, src := range sources {
		augmented, outcome, err := augmentOne(src)
		if err != nil {
			log.Warn("Origin detection failed, leaving source unchanged",
				"file", sourceFile(src), "error", err)
			out[i] = src
			continue
		}
		if outcome != Unchanged {
			roots.Add(src.Base)
			log.Debug("Detected origin", "file", src.File, "origin", src.Base, "outcome", outcome.String())
		}
		out[i] = augmented
	}
	return out, roots
}

func augmentOne(src *model.Source) (out *model.Source, outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, outcome, err = src, Unchanged, fmt.Errorf("panic: %v", r)
		}
	}()

	if src == nil || src.Base == "" {
		return src, Unchanged, nil
	}
	base := src.Base

	if src.Has(base) {
		clone := src.Clone()
		rec := clone.Records[base]
		seen := make(map[string]bool, len(rec.Mutual)+len(clone.Order))
		for _, id := range rec.Mutual {
			seen[id] = true
		}
		for _, id := range clone.Order {
			if id != base && !seen[id] {
				seen[id] = true
				rec.Mutual = append(rec.Mutual, id)
			}
		}
		return clone, Extended, nil
	}

	if profile.LooksLikeIdentity(base) && len(src.Order) > 0 {
		clone := src.Clone()
		clone.Add(base, &model.FriendRecord{
			Name:   base,
			Mutual: append([]string{}, src.Order...),
		})
		return clone, Synthesized, nil
	}

	return src, Unchanged, nil
}

func sourceFile(src *model.Source) string {
	if src == nil {
		return ""
	}
	return src.File
}

// Package merge folds several normalised sources into one canonical mapping.
package merge

import (
	"encoding/json"
	"fmt"

	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/profile"
)

// Merge combines sources in the order given. For every identity:
//   - the first genuine name wins; until one is seen the identity itself is
//     used as a placeholder
//   - the first source with a non-empty avatar reference sets the avatar
//   - mutual is the ordered union of that identity's lists in all sources
//
// References to identities without a record are kept; the graph builder
// drops them. Merge never fails and is deterministic for a given order.
func Merge(sources []*model.Source) *model.Canonical {
	out := model.NewCanonical()
	seen := make(map[string]map[string]bool)

	for _, src := range sources {
		if src == nil {
			continue
		}
		for _, id := range src.Order {
			info := src.Records[id]
			if info == nil {
				info = &model.FriendRecord{}
			}
			name := profile.CleanName(info.Name)

			rec := out.Get(id)
			if rec == nil {
				rec = &model.CanonicalRecord{Name: id, Mutual: []string{}}
				if name != "" {
					rec.Name = name
				}
				rec.AvatarURL = profile.AvatarURL(id, info.AvatarRef)
				out.Put(id, rec)
				seen[id] = make(map[string]bool)
			} else {
				if name != "" && (rec.Name == "" || rec.Name == id) {
					rec.Name = name
				}
				if rec.AvatarURL == "" {
					rec.AvatarURL = profile.AvatarURL(id, info.AvatarRef)
				}
			}

			known := seen[id]
			for _, m := range info.Mutual {
				if !known[m] {
					known[m] = true
					rec.Mutual = append(rec.Mutual, m)
				}
			}
		}
	}
	return out
}

// Snapshot encodes the canonical mapping in the export format. The result is
// a valid input file.
func Snapshot(c *model.Canonical) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

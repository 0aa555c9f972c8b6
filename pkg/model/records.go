package model

// FriendRecord is one person as seen by a single export, after normalisation.
// It only lives for the duration of a load.
type FriendRecord struct {
	Name      string   `json:"name"`
	AvatarRef string   `json:"avatarUrl,omitempty"` // Full URL or a platform image hash
	Mutual    []string `json:"mutual"`
}

// Source is one decoded export file.
type Source struct {
	File    string                   `json:"file"`  // Name the file was loaded as
	Base    string                   `json:"base"`  // File name without directory and extension
	Order   []string                 `json:"order"` // Keys in document order
	Records map[string]*FriendRecord `json:"records"`
}

// NewSource creates an empty source for the given file name.
func NewSource(file, base string) *Source {
	return &Source{
		File:    file,
		Base:    base,
		Order:   make([]string, 0),
		Records: make(map[string]*FriendRecord),
	}
}

// Add appends a record, keeping document order. A repeated key replaces the
// earlier record but keeps its original position.
func (s *Source) Add(id string, rec *FriendRecord) {
	if _, exists := s.Records[id]; !exists {
		s.Order = append(s.Order, id)
	}
	s.Records[id] = rec
}

// Has reports whether the source has a record for id.
func (s *Source) Has(id string) bool {
	_, ok := s.Records[id]
	return ok
}

// Clone returns a deep copy of the source.
func (s *Source) Clone() *Source {
	out := &Source{
		File:    s.File,
		Base:    s.Base,
		Order:   append([]string(nil), s.Order...),
		Records: make(map[string]*FriendRecord, len(s.Records)),
	}
	for id, rec := range s.Records {
		if rec == nil {
			out.Records[id] = &FriendRecord{Mutual: []string{}}
			continue
		}
		out.Records[id] = &FriendRecord{
			Name:      rec.Name,
			AvatarRef: rec.AvatarRef,
			Mutual:    append([]string{}, rec.Mutual...),
		}
	}
	return out
}

// CanonicalRecord is the merged view of one identity across all sources.
type CanonicalRecord struct {
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatarUrl"`
	Mutual    []string `json:"mutual"`
}

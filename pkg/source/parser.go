// Package source decodes raw export files into normalised per-source records.
//
// Exports come from scraping scripts and are loosely shaped: "mutual" may be
// missing or hold numbers, the avatar may be under "avatarUrl" or "avatar".
// All of that is resolved here so later stages only see model.FriendRecord.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/ritzau/mutual-graph/pkg/model"
)

// File is a named raw export as handed over by the caller.
type File struct {
	Name string
	Data []byte
}

// BaseName returns the file name without directory and last extension,
// e.g. "exports/123.json" -> "123".
func BaseName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if ext := filepath.Ext(base); len(ext) > 1 {
		base = base[:len(base)-len(ext)]
	}
	return base
}

// Parse decodes one export. The top level must be a JSON object; anything
// else yields a *MalformedSourceError naming the file.
func Parse(file string, data []byte) (*model.Source, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, malformed(file, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, malformed(file, ErrNotObject)
	}

	src := model.NewSource(file, BaseName(file))
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, malformed(file, err)
		}
		id, ok := keyTok.(string)
		if !ok {
			return nil, malformed(file, fmt.Errorf("unexpected token %v", keyTok))
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed(file, err)
		}
		src.Add(id, normalize(raw))
	}

	// Closing brace, then nothing but whitespace
	if _, err := dec.Token(); err != nil {
		return nil, malformed(file, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(file, errors.New("unexpected data after top-level object"))
	}

	return src, nil
}

// ParseBatch parses every file. The batch is all-or-nothing: the first
// malformed file aborts it and no sources are returned.
func ParseBatch(files []File) ([]*model.Source, error) {
	sources := make([]*model.Source, 0, len(files))
	for _, f := range files {
		src, err := Parse(f.Name, f.Data)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// rawRecord is the loose on-disk shape of one record.
type rawRecord struct {
	Name      json.RawMessage `json:"name"`
	AvatarURL json.RawMessage `json:"avatarUrl"`
	Avatar    json.RawMessage `json:"avatar"`
	Mutual    json.RawMessage `json:"mutual"`
}

// normalize maps a record value onto FriendRecord. A value that is not an
// object becomes an empty record rather than an error.
func normalize(raw json.RawMessage) *model.FriendRecord {
	rec := &model.FriendRecord{Mutual: []string{}}

	var r rawRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return rec
	}

	rec.Name = scalarString(r.Name)
	if s := stringOnly(r.AvatarURL); s != "" {
		rec.AvatarRef = s
	} else {
		rec.AvatarRef = stringOnly(r.Avatar)
	}
	rec.Mutual = identities(r.Mutual)
	return rec
}

// scalarString renders strings, numbers and booleans; everything else is "".
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func stringOnly(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// identities decodes a mutual list. Non-array values give an empty list,
// non-scalar elements are skipped and duplicates dropped.
func identities(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		id := scalarString(item)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

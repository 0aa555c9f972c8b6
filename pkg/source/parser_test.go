package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_KeepsDocumentOrder(t *testing.T) {
	data := []byte(`{"b":{"name":"B","mutual":["a"]},"a":{"name":"A","mutual":["b","c"]},"c":{}}`)

	src, err := Parse("dir/123.json", data)
	require.NoError(t, err)

	assert.Equal(t, "dir/123.json", src.File)
	assert.Equal(t, "123", src.Base)
	assert.Equal(t, []string{"b", "a", "c"}, src.Order)
	assert.Equal(t, "B", src.Records["b"].Name)
	assert.Equal(t, []string{"b", "c"}, src.Records["a"].Mutual)
	assert.Equal(t, []string{}, src.Records["c"].Mutual)
}

func TestParse_NormalisesLooseShapes(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantName   string
		wantAvatar string
		wantMutual []string
	}{
		{"numeric name", `{"name":42}`, "42", "", []string{}},
		{"object name", `{"name":{"x":1}}`, "", "", []string{}},
		{"avatarUrl preferred", `{"avatarUrl":"https://x/a.png","avatar":"abc"}`, "", "https://x/a.png", []string{}},
		{"avatar fallback", `{"avatar":"abc"}`, "", "abc", []string{}},
		{"empty avatarUrl falls back", `{"avatarUrl":"","avatar":"abc"}`, "", "abc", []string{}},
		{"non-string avatar ignored", `{"avatar":12}`, "", "", []string{}},
		{"numeric mutuals", `{"mutual":[1,"2",3]}`, "", "", []string{"1", "2", "3"}},
		{"duplicate mutuals", `{"mutual":["a","b","a"]}`, "", "", []string{"a", "b"}},
		{"nested mutual skipped", `{"mutual":["a",["b"],{"c":1},null]}`, "", "", []string{"a"}},
		{"mutual not an array", `{"mutual":"a"}`, "", "", []string{}},
		{"record not an object", `"oops"`, "", "", []string{}},
		{"record null", `null`, "", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Parse("f.json", []byte(`{"x":`+tt.value+`}`))
			require.NoError(t, err)

			rec := src.Records["x"]
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantName, rec.Name)
			assert.Equal(t, tt.wantAvatar, rec.AvatarRef)
			assert.Equal(t, tt.wantMutual, rec.Mutual)
		})
	}
}

func TestParse_RepeatedKeyKeepsFirstPosition(t *testing.T) {
	src, err := Parse("f.json", []byte(`{"a":{"name":"one"},"b":{},"a":{"name":"two"}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, src.Order)
	assert.Equal(t, "two", src.Records["a"].Name)
}

func TestParse_RejectsWrongShapes(t *testing.T) {
	for _, doc := range []string{`[]`, `[{"a":1}]`, `"text"`, `12`, `null`, `true`} {
		t.Run(doc, func(t *testing.T) {
			_, err := Parse("bad.json", []byte(doc))
			require.Error(t, err)

			var malformedErr *MalformedSourceError
			require.ErrorAs(t, err, &malformedErr)
			assert.Equal(t, "bad.json", malformedErr.File)
			assert.ErrorIs(t, err, ErrNotObject)
		})
	}
}

func TestParse_RejectsSyntaxErrors(t *testing.T) {
	for _, doc := range []string{``, `{`, `{"a":}`, `{"a":{}} {}`, `{"a":{}} x`} {
		t.Run(doc, func(t *testing.T) {
			_, err := Parse("bad.json", []byte(doc))

			var malformedErr *MalformedSourceError
			require.ErrorAs(t, err, &malformedErr)
			assert.False(t, errors.Is(err, ErrNotObject))
			assert.Contains(t, err.Error(), "bad.json")
		})
	}
}

func TestParse_EmptyObject(t *testing.T) {
	src, err := Parse("empty.json", []byte(" {} \n"))
	require.NoError(t, err)
	assert.Empty(t, src.Order)
}

func TestParseBatch_AllOrNothing(t *testing.T) {
	files := []File{
		{Name: "a.json", Data: []byte(`{"1":{}}`)},
		{Name: "b.json", Data: []byte(`[]`)},
		{Name: "c.json", Data: []byte(`{"2":{}}`)},
	}

	sources, err := ParseBatch(files)
	assert.Nil(t, sources)

	var malformedErr *MalformedSourceError
	require.ErrorAs(t, err, &malformedErr)
	assert.Equal(t, "b.json", malformedErr.File)

	sources, err = ParseBatch([]File{files[0], files[2]})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "a", sources[0].Base)
	assert.Equal(t, "c", sources[1].Base)
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"123456789012345678.json":      "123456789012345678",
		"exports/alice.json":           "alice",
		"archive.tar.gz":               "archive.tar",
		"noext":                        "noext",
		".json":                        "",
		"/tmp/data/888888888888888.js": "888888888888888",
	}
	for in, want := range tests {
		assert.Equal(t, want, BaseName(in), in)
	}
}

func TestReadFiles_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"c.json", "a.json", "b.json"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(`{"`+name+`":{}}`), 0o644))
		paths = append(paths, p)
	}

	files, err := ReadFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for i, f := range files {
		assert.Equal(t, paths[i], f.Name)
		assert.Contains(t, string(f.Data), filepath.Base(paths[i]))
	}
}

func TestReadFiles_MissingFile(t *testing.T) {
	_, err := ReadFiles(context.Background(), []string{filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

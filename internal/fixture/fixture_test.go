package fixture_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyseed/internal/catalog"
	"surveyseed/internal/domain"
	"surveyseed/internal/fixture"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	Builder fixture.Builder
	Out     *bytes.Buffer
	Root    string
}

// newTestEnv lays out root/a/b/c and returns a builder on the default catalog
// with a frozen clock.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	out := &bytes.Buffer{}
	b := fixture.New(c, nil)
	b.Now = func() time.Time { return fixedNow }
	b.Out = out
	return testEnv{Builder: b, Out: out, Root: root}
}

func (e testEnv) start() string { return filepath.Join(e.Root, "a", "b", "c") }

func readDocument(t *testing.T, path string) domain.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc domain.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestCandidates(t *testing.T) {
	got := fixture.Candidates(filepath.Join("/srv", "app", "scripts"))
	want := []string{
		filepath.Join("/srv", "app", "scripts"),
		filepath.Join("/srv", "app"),
		filepath.Join("/srv"),
	}
	assert.Equal(t, want, got)
}

func TestResolveOutputRoot(t *testing.T) {
	cases := []struct {
		name    string
		publics []string
		want    string
	}{
		{"depth 0", []string{"a/b/c"}, "a/b/c"},
		{"depth 1", []string{"a/b"}, "a/b"},
		{"depth 2", []string{"a"}, "a"},
		{"nearest wins over grandparent", []string{"a/b/c", "a"}, "a/b/c"},
		{"parent wins over grandparent", []string{"a/b", "a"}, "a/b"},
		{"none falls back to start", nil, "a/b/c"},
		{"depth 3 is out of reach", []string{""}, "a/b/c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			for _, p := range tc.publics {
				require.NoError(t, os.MkdirAll(filepath.Join(env.Root, filepath.FromSlash(p), "public"), 0o755))
			}
			got := fixture.ResolveOutputRoot(env.start())
			assert.Equal(t, filepath.Join(env.Root, filepath.FromSlash(tc.want)), got)
		})
	}
}

func TestResolveOutputRootIgnoresPublicFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.Root, "a", "b", "public"), []byte("x"), 0o644))
	assert.Equal(t, env.start(), fixture.ResolveOutputRoot(env.start()))
}

func TestBuildDocument(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	const now = int64(1704067200000)
	doc := fixture.BuildDocument(c.Surveys, now)

	require.NotNil(t, doc.Users)
	assert.Empty(t, doc.Users)
	require.Len(t, doc.Surveys, len(c.Surveys))
	ids := map[string]bool{}
	for i, s := range doc.Surveys {
		assert.Equal(t, c.Surveys[i].ID, s.ID, "order at %d", i)
		assert.Equal(t, now, s.CreatedAt)
		assert.Equal(t, s.CreatedAt, s.UpdatedAt)
		assert.False(t, ids[s.ID], "duplicate id %s", s.ID)
		ids[s.ID] = true
		require.Len(t, s.Items, len(c.Surveys[i].Items))
		for j, it := range s.Items {
			assert.Equal(t, c.Surveys[i].Items[j].Options, it.Options)
		}
	}
}

func TestBuildDocumentDoesNotAliasCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	doc := fixture.BuildDocument(c.Surveys, 1)
	doc.Surveys[0].Items[0].Options[0] = "changed"
	assert.Equal(t, "Very satisfied", c.Surveys[0].Items[0].Options[0])
}

func TestEncodeKeepsLiteralCharacters(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, fixture.Encode(&buf, fixture.BuildDocument(c.Surveys, 42)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "{\n  \"users\": [],\n  \"surveys\": [\n    {\n      \"id\": \"401c13a3-8fa5-4b4b-a172-fdb7c25c374c\",\n"))
	assert.Contains(t, out, `"<1 hour"`)
	assert.Contains(t, out, `"1–3 hours"`)
	assert.Contains(t, out, `"What’s your primary phone activity?"`)
	assert.NotContains(t, out, `\u`)
}

func TestEncodeNilSlicesAsEmptyArrays(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixture.Encode(&buf, domain.Document{}))
	assert.Equal(t, "{\n  \"users\": [],\n  \"surveys\": []\n}\n", buf.String())
}

func TestRunFallbackEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Builder.Run(env.start())
	require.NoError(t, err)

	wantPath := filepath.Join(env.start(), "public", "db.json")
	assert.Equal(t, wantPath, res.Path)
	assert.True(t, res.Fallback)
	assert.Equal(t, 30, res.Surveys)
	assert.Equal(t, fixedNow.UnixMilli(), res.GeneratedAt)
	assert.Equal(t, "✓ Wrote "+wantPath+" with 30 surveys\n", env.Out.String())

	doc := readDocument(t, wantPath)
	assert.Empty(t, doc.Users)
	require.Len(t, doc.Surveys, 30)
	assert.Equal(t, "Very satisfied", doc.Surveys[0].Items[0].Options[0])
	for _, s := range doc.Surveys {
		assert.Equal(t, fixedNow.UnixMilli(), s.CreatedAt)
		assert.Equal(t, fixedNow.UnixMilli(), s.UpdatedAt)
	}
}

func TestRunUsesNearestPublicDir(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.Root, "a", "public"), 0o755))
	res, err := env.Builder.Run(env.start())
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, filepath.Join(env.Root, "a", "public", "db.json"), res.Path)
	_, err = os.Stat(filepath.Join(env.start(), "public"))
	assert.True(t, os.IsNotExist(err), "start dir must stay untouched")
}

func TestRunReplacesExistingFile(t *testing.T) {
	env := newTestEnv(t)
	public := filepath.Join(env.start(), "public")
	require.NoError(t, os.MkdirAll(public, 0o755))
	stale := `{"users":[{"id":"u1"}],"surveys":[{"id":"stale"},{"id":"older"}],"extra":true}` + strings.Repeat(" ", 1<<16)
	require.NoError(t, os.WriteFile(filepath.Join(public, "db.json"), []byte(stale), 0o644))

	_, err := env.Builder.Run(env.start())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(public, "db.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.NotContains(t, string(data), "extra")
	doc := readDocument(t, filepath.Join(public, "db.json"))
	assert.Empty(t, doc.Users)
	assert.Len(t, doc.Surveys, 30)
}

func TestRunTwiceDiffersOnlyInTimestamps(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Builder.Run(env.start())
	require.NoError(t, err)
	first := readDocument(t, res.Path)

	env.Builder.Now = func() time.Time { return fixedNow.Add(1500 * time.Millisecond) }
	res, err = env.Builder.Run(env.start())
	require.NoError(t, err)
	second := readDocument(t, res.Path)

	assert.Equal(t, fixedNow.UnixMilli()+1500, second.Surveys[0].CreatedAt)
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(domain.Survey{}, "CreatedAt", "UpdatedAt")); diff != "" {
		t.Fatalf("documents differ beyond timestamps (-first +second):\n%s", diff)
	}
}

func TestRunPropagatesFilesystemErrors(t *testing.T) {
	env := newTestEnv(t)
	// a regular file named public blocks MkdirAll and is not a probe match
	require.NoError(t, os.WriteFile(filepath.Join(env.start(), "public"), []byte("x"), 0o644))
	_, err := env.Builder.Run(env.start())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create output dir")
	assert.Empty(t, env.Out.String())
}

func TestRunWithoutCatalog(t *testing.T) {
	_, err := fixture.Builder{}.Run(t.TempDir())
	require.Error(t, err)
}

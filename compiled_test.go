package ferrule

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newCompiledTestBuilder(t *testing.T, dir string) *Builder {
	t.Helper()

	b := NewBuilder()
	b.Register("logger", NewTLogger)
	b.Register("database", NewTDatabase, WithParamNames("dsn", "logger"))
	b.AddDefinitions(map[string]any{
		"app.name": "ferrule",
		"dsn":      "postgres://prod",
		"database": Object("database").Constructor(Ref("dsn"), Ref("logger")),
		"banner":   Str("{app.name} ready"),
	})
	b.UseAutowiring()
	b.EnableCompilation(dir)
	return b
}

func TestCompiledContainer_ServesCompiledEntries(t *testing.T) {
	c := mustBuild(t, newCompiledTestBuilder(t, t.TempDir()))

	compiled, ok := c.(*CompiledContainer)
	require.True(t, ok, "EnableCompilation should produce a *CompiledContainer, got %T", c)

	require.True(t, compiled.Compiled("app.name"))
	require.True(t, compiled.Compiled("database"))

	v, err := c.Get("app.name")
	require.NoError(t, err)
	require.Equal(t, "ferrule", v)

	db, err := Get[*TDatabase](c, "database")
	require.NoError(t, err)
	require.Equal(t, "postgres://prod", db.DSN)
	require.NotNil(t, db.Logger)

	v, err = c.Get("banner")
	require.NoError(t, err)
	require.Equal(t, "ferrule ready", v)
}

func TestCompiledContainer_SingletonIdentityAcrossPaths(t *testing.T) {
	c := mustBuild(t, newCompiledTestBuilder(t, t.TempDir()))

	first, err := Get[*TDatabase](c, "database")
	require.NoError(t, err)
	second, err := Get[*TDatabase](c, "database")
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestCompiledContainer_DynamicFallback(t *testing.T) {
	dir := t.TempDir()
	b := newCompiledTestBuilder(t, dir)
	b.AddDefinitions(map[string]any{
		// Closures cannot be addressed from generated code.
		"closure": Factory(func() string { return "dynamic" }),
	})
	c := mustBuild(t, b)

	compiled := c.(*CompiledContainer)
	require.False(t, compiled.Compiled("closure"))

	v, err := c.Get("closure")
	require.NoError(t, err)
	require.Equal(t, "dynamic", v)
	require.True(t, c.Has("closure"))
}

func TestCompiledContainer_ArtifactWritten(t *testing.T) {
	dir := t.TempDir()
	c := mustBuild(t, newCompiledTestBuilder(t, dir))

	compiled := c.(*CompiledContainer)
	path := compiled.CompiledPath()
	require.NotEmpty(t, path)

	src, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(src)
	require.Contains(t, text, "Code generated by ferrule. DO NOT EDIT.")
	require.Contains(t, text, "package compiled")
	require.Contains(t, text, "func NewContainer(")
	require.Contains(t, text, `c.Register("app.name"`)
	require.Contains(t, text, `c.Register("database"`)
}

func TestCompiledContainer_NamedArtifact(t *testing.T) {
	dir := t.TempDir()

	b := newCompiledTestBuilder(t, dir)
	b.WithArtifactName("wiring.go")

	c := mustBuild(t, b).(*CompiledContainer)
	require.Equal(t, filepath.Join(dir, "wiring.go"), c.CompiledPath())
}

func TestCompiledContainer_RecompileIsStable(t *testing.T) {
	dir := t.TempDir()

	first := mustBuild(t, newCompiledTestBuilder(t, dir)).(*CompiledContainer)
	before, err := os.ReadFile(first.CompiledPath())
	require.NoError(t, err)
	info, err := os.Stat(first.CompiledPath())
	require.NoError(t, err)

	second := mustBuild(t, newCompiledTestBuilder(t, dir)).(*CompiledContainer)
	require.Equal(t, first.CompiledPath(), second.CompiledPath())

	after, err := os.ReadFile(second.CompiledPath())
	require.NoError(t, err)
	require.Equal(t, before, after)

	infoAfter, err := os.Stat(second.CompiledPath())
	require.NoError(t, err)
	require.Equal(t, info.ModTime(), infoAfter.ModTime(), "unchanged artifact must not be rewritten")

	// No temporary files may be left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestCompiledContainer_MakeUsesDynamicEngine(t *testing.T) {
	c := mustBuild(t, newCompiledTestBuilder(t, t.TempDir()))

	v, err := c.Make("database", map[string]any{"dsn": "postgres://test"})
	require.NoError(t, err)
	require.Equal(t, "postgres://test", v.(*TDatabase).DSN)
}

func TestCompiledContainer_TransientNotCached(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder()
	b.Register("counter", NewTCounter)
	b.AddDefinitions(map[string]any{
		"counter": Object("counter").AsTransient(),
	})
	b.EnableCompilation(dir)
	c := mustBuild(t, b)

	compiled := c.(*CompiledContainer)
	require.True(t, compiled.Compiled("counter"))

	first, err := c.Get("counter")
	require.NoError(t, err)
	second, err := c.Get("counter")
	require.NoError(t, err)
	require.NotSame(t, first, second)
}

func TestNewCompiledContainer_RegisterAccessor(t *testing.T) {
	delegate := mustBuild(t, NewBuilder())
	compiled := NewCompiledContainer(delegate, nil)

	compiled.Register("greeting", func(c Container) (any, error) {
		return "hello", nil
	})

	v, err := compiled.Get("greeting")
	require.NoError(t, err)
	require.Equal(t, "hello", v)
	require.Empty(t, compiled.CompiledPath())
}

func TestCompiledContainer_SetGoesToDelegate(t *testing.T) {
	c := mustBuild(t, newCompiledTestBuilder(t, t.TempDir()))

	c.Set("runtime.entry", 7)
	v, err := c.Get("runtime.entry")
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

package definition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrule-go/ferrule/internal/definition"
)

func TestSubstitute_Reference(t *testing.T) {
	def := definition.NewReference("model.*")

	got := definition.Substitute(def, []string{"user"})
	ref, ok := got.(*definition.Reference)
	require.True(t, ok)
	assert.Equal(t, "model.user", ref.Target)

	assert.Equal(t, "model.*", def.Target, "the original stays untouched")
}

func TestSubstitute_String(t *testing.T) {
	def := definition.NewString("repository for {model.*}")

	got := definition.Substitute(def, []string{"order"}).(*definition.String)
	assert.Equal(t, "repository for {model.order}", got.Expression)
}

func TestSubstitute_Object(t *testing.T) {
	def := definition.NewObject("*Repository").
		Constructor(definition.NewReference("db.*"), "static").
		Property("Logger", definition.NewReference("log.*")).
		Method("SetTable", definition.NewString("tbl_*"))

	got := definition.Substitute(def, []string{"user"}).(*definition.Object)

	assert.Equal(t, "userRepository", got.TypeName)
	require.Len(t, got.ConstructorArgs, 2)
	assert.Equal(t, "db.user", got.ConstructorArgs[0].(*definition.Reference).Target)
	assert.Equal(t, "static", got.ConstructorArgs[1], "plain literals pass through")
	assert.Equal(t, "log.user", got.Properties[0].Value.(*definition.Reference).Target)
	assert.Equal(t, "tbl_user", got.MethodCalls[0].Args[0].(*definition.String).Expression)

	// Deep copy: the template can serve further matches.
	assert.Equal(t, "*Repository", def.TypeName)
	assert.Equal(t, "db.*", def.ConstructorArgs[0].(*definition.Reference).Target)
}

func TestSubstitute_Factory(t *testing.T) {
	fn := func() int { return 1 }
	def := definition.NewFactory(fn).
		Param("source", definition.NewReference("feed.*"))

	got := definition.Substitute(def, []string{"rss"}).(*definition.Factory)
	assert.NotNil(t, got.Callable)
	assert.Equal(t, "feed.rss", got.Parameters[0].Value.(*definition.Reference).Target)

	named := definition.NewFactory("builder.*")
	got = definition.Substitute(named, []string{"csv"}).(*definition.Factory)
	assert.Equal(t, "builder.csv", got.Callable)
}

func TestSubstitute_ArrayAndEnv(t *testing.T) {
	arr := &definition.Array{Values: []definition.ArrayEntry{
		{Key: "driver", Value: definition.NewReference("driver.*")},
		{Key: "name", Value: "fixed"},
	}}

	got := definition.Substitute(arr, []string{"pg"}).(*definition.Array)
	assert.Equal(t, "driver.pg", got.Values[0].Value.(*definition.Reference).Target)
	assert.Equal(t, "fixed", got.Values[1].Value)

	env := definition.NewEnv("APP_*_URL").OrElse(definition.NewReference("fallback.*"))
	gotEnv := definition.Substitute(env, []string{"DB"}).(*definition.Env)
	assert.Equal(t, "APP_DB_URL", gotEnv.Variable)
	assert.Equal(t, "fallback.DB", gotEnv.Default.(*definition.Reference).Target)
}

func TestSubstitute_MultipleCaptures(t *testing.T) {
	def := definition.NewReference("*.*")

	got := definition.Substitute(def, []string{"cache", "redis"}).(*definition.Reference)
	assert.Equal(t, "cache.redis", got.Target)
}

func TestSubstitute_ExtraStarsKept(t *testing.T) {
	def := definition.NewReference("a.*.b.*")

	got := definition.Substitute(def, []string{"x"}).(*definition.Reference)
	assert.Equal(t, "a.x.b.*", got.Target)
}

func TestSubstitute_NoCaptures(t *testing.T) {
	def := definition.NewReference("model.*")
	assert.Same(t, definition.Substitute(def, nil), def)
}

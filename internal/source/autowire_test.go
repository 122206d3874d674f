package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrule-go/ferrule/internal/definition"
	"github.com/ferrule-go/ferrule/internal/source"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

type wireLogger struct{ Prefix string }

func newWireLogger() *wireLogger { return &wireLogger{Prefix: "wire"} }

type wireService struct {
	Logger *wireLogger `inject:""`
	Name   string

	cache *wireCache
}

func (s *wireService) SetCache(c *wireCache) { s.cache = c }

type wireCache struct{}

func newWireCache() *wireCache { return &wireCache{} }

type wireWorker struct {
	Queue *wireCache `inject:"jobs.queue"`
}

type wireOptional struct {
	Missing *wireService `inject:",optional"`
}

func newWireService(logger *wireLogger, label string) *wireService {
	return &wireService{Logger: logger, Name: label}
}

func TestAutowire_DerivesConstructorReferences(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterConstructor("logger", newWireLogger))
	require.NoError(t, reg.RegisterConstructor("service", newWireService))

	s := source.NewAutowire(reg)

	def, ok, err := s.Definition("service")
	require.NoError(t, err)
	require.True(t, ok)

	obj := def.(*definition.Object)
	require.True(t, obj.HasConstructor)
	require.Len(t, obj.ConstructorArgs, 2)

	ref := obj.ConstructorArgs[0].(*definition.Reference)
	assert.Equal(t, "logger", ref.Target)
	assert.Nil(t, obj.ConstructorArgs[1], "unregistered string param stays nil")
}

func TestAutowire_UnknownNamePassesThrough(t *testing.T) {
	s := source.NewAutowire(typereg.New())

	_, ok, err := s.Definition("anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAutowire_DefinitionsEnumerateRegistry(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterConstructor("logger", newWireLogger))
	require.NoError(t, reg.RegisterConstructor("cache", newWireCache))

	defs, err := source.NewAutowire(reg).Definitions()
	require.NoError(t, err)
	assert.Len(t, defs, 2)
}

func TestTags_InjectByType(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterConstructor("logger", newWireLogger))
	require.NoError(t, reg.RegisterConstructor("cache", newWireCache))
	require.NoError(t, reg.RegisterStruct("service", wireService{}))

	s := source.NewTags(reg)

	def, ok, err := s.Definition("service")
	require.NoError(t, err)
	require.True(t, ok)

	obj := def.(*definition.Object)
	require.Len(t, obj.Properties, 1)
	assert.Equal(t, "Logger", obj.Properties[0].Name)
	assert.Equal(t, "logger", obj.Properties[0].Value.(*definition.Reference).Target)

	// SetCache is fully resolvable by type, so it is injected.
	require.Len(t, obj.MethodCalls, 1)
	assert.Equal(t, "SetCache", obj.MethodCalls[0].Name)
}

func TestTags_InjectByExplicitName(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterStruct("worker", wireWorker{}))

	def, ok, err := source.NewTags(reg).Definition("worker")
	require.NoError(t, err)
	require.True(t, ok)

	obj := def.(*definition.Object)
	require.Len(t, obj.Properties, 1)
	assert.Equal(t, "jobs.queue", obj.Properties[0].Value.(*definition.Reference).Target)
}

func TestTags_RequiredInjectionOnUnregisteredType(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterStruct("service", wireService{}))

	_, _, err := source.NewTags(reg).Definition("service")
	require.Error(t, err, "inject tag on unregistered *wireLogger must fail")
}

func TestTags_OptionalInjectionSkipped(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterStruct("opt", wireOptional{}))

	def, ok, err := source.NewTags(reg).Definition("opt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, def.(*definition.Object).Properties)
}

func TestTags_UnresolvableSetterOmitted(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterConstructor("logger", newWireLogger))
	require.NoError(t, reg.RegisterStruct("service", wireService{}))

	def, _, err := source.NewTags(reg).Definition("service")
	require.NoError(t, err)
	assert.Empty(t, def.(*definition.Object).MethodCalls,
		"SetCache must be omitted while *wireCache is unregistered")
}

func TestTags_SetterOverrides(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterConstructor("logger", newWireLogger))
	require.NoError(t, reg.RegisterStruct("service", wireService{},
		typereg.WithMethodArgs("SetCache", &wireCache{})))

	def, _, err := source.NewTags(reg).Definition("service")
	require.NoError(t, err)

	calls := def.(*definition.Object).MethodCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "SetCache", calls[0].Name)
	assert.IsType(t, &wireCache{}, calls[0].Args[0])
}

func TestTags_NonStructRegistrationPassesThrough(t *testing.T) {
	reg := typereg.New()
	require.NoError(t, reg.RegisterConstructor("answer", func() int { return 42 }))

	_, ok, err := source.NewTags(reg).Definition("answer")
	require.NoError(t, err)
	assert.False(t, ok)
}

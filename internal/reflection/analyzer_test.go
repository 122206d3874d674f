package reflection_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrule-go/ferrule/internal/reflection"
)

type base struct {
	Region string
}

type analyzed struct {
	base

	Logger  *logger `inject:""`
	Primary *logger `inject:"log.primary"`
	Backup  *logger `inject:",optional"`
	Skipped *logger `inject:"-"`
	Plain   string

	hidden string
}

type logger struct{}

func (a *analyzed) SetTimeout(seconds int) {}

func (a *analyzed) SetEndpoint(host string, port int) error { return nil }

func (a *analyzed) Setup() {} // no arguments, not a setter

func (a *analyzed) Validate() error { return nil }

type lazyMarked struct {
	Handle *logger `lazy:"true"`
}

func newAnalyzed(l *logger, name string) (*analyzed, error) {
	return &analyzed{Logger: l}, nil
}

func TestAnalyzeFunc(t *testing.T) {
	a := reflection.New()

	info, err := a.AnalyzeFunc(newAnalyzed)
	require.NoError(t, err)

	assert.Contains(t, info.Name, "newAnalyzed")
	require.Len(t, info.Params, 2)
	assert.Equal(t, reflect.TypeOf(&logger{}), info.Params[0].Type)
	assert.True(t, info.HasErrorReturn)
	assert.Equal(t, 1, info.NumResults)
	assert.False(t, info.Variadic)

	// Identical function values share one analysis.
	again, err := a.AnalyzeFunc(newAnalyzed)
	require.NoError(t, err)
	assert.Same(t, info, again)
}

func TestAnalyzeFunc_Rejects(t *testing.T) {
	a := reflection.New()

	_, err := a.AnalyzeFunc(nil)
	assert.Error(t, err)

	_, err = a.AnalyzeFunc("not a function")
	assert.Error(t, err)
}

func TestAnalyzeFunc_Variadic(t *testing.T) {
	a := reflection.New()

	info, err := a.AnalyzeFunc(fmt.Sprint)
	require.NoError(t, err)
	assert.True(t, info.Variadic)
}

func TestAnalyzeStruct_Fields(t *testing.T) {
	a := reflection.New()

	info, err := a.AnalyzeStruct(reflect.TypeOf(analyzed{}))
	require.NoError(t, err)

	byName := make(map[string]reflection.Field)
	for _, f := range info.Fields {
		byName[f.Name] = f
	}

	require.Contains(t, byName, "Region", "promoted embedded fields are collected")
	assert.Equal(t, []int{0, 0}, byName["Region"].Index)

	assert.True(t, byName["Logger"].Inject)
	assert.Empty(t, byName["Logger"].Entry)

	assert.Equal(t, "log.primary", byName["Primary"].Entry)

	assert.True(t, byName["Backup"].Optional)
	assert.Empty(t, byName["Backup"].Entry)

	assert.False(t, byName["Skipped"].Inject, `inject:"-" opts out`)
	assert.False(t, byName["Plain"].Inject)

	assert.NotContains(t, byName, "hidden")
}

func TestAnalyzeStruct_Setters(t *testing.T) {
	a := reflection.New()

	info, err := a.AnalyzeStruct(reflect.TypeOf(&analyzed{}))
	require.NoError(t, err)

	names := make([]string, 0, len(info.Setters))
	for _, s := range info.Setters {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"SetTimeout", "SetEndpoint"}, names, "zero-argument methods are not setters")

	for _, s := range info.Setters {
		if s.Name == "SetEndpoint" {
			require.Len(t, s.Params, 2)
			assert.Equal(t, reflect.TypeOf(""), s.Params[0].Type)
		}
	}
}

func TestAnalyzeStruct_LazyMarker(t *testing.T) {
	a := reflection.New()

	info, err := a.AnalyzeStruct(reflect.TypeOf(lazyMarked{}))
	require.NoError(t, err)
	assert.True(t, info.Lazy)
}

func TestAnalyzeStruct_RejectsNonStructs(t *testing.T) {
	a := reflection.New()

	_, err := a.AnalyzeStruct(reflect.TypeOf(42))
	assert.Error(t, err)

	_, err = a.AnalyzeStruct(nil)
	assert.Error(t, err)
}

func TestIsClosure(t *testing.T) {
	assert.False(t, reflection.IsClosure(reflect.ValueOf(newAnalyzed)))

	anon := func() int { return 1 }
	assert.True(t, reflection.IsClosure(reflect.ValueOf(anon)))

	a := &analyzed{}
	assert.True(t, reflection.IsClosure(reflect.ValueOf(a.Validate)), "method values capture their receiver")
}

func TestFuncName(t *testing.T) {
	name := reflection.FuncName(reflect.ValueOf(newAnalyzed))
	assert.Contains(t, name, "internal/reflection")
	assert.Contains(t, name, "newAnalyzed")

	assert.Empty(t, reflection.FuncName(reflect.ValueOf(42)))
}

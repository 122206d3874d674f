package reflection_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrule-go/ferrule/internal/reflection"
)

type invoked struct {
	Name    string
	Weights []float64
	Timeout int

	base
}

func (v *invoked) SetTimeout(seconds int) { v.Timeout = seconds }

func (v *invoked) SetName(name string) error {
	if name == "" {
		return errors.New("name must not be empty")
	}
	v.Name = name
	return nil
}

func newInvoked(name string, timeout int) *invoked {
	return &invoked{Name: name, Timeout: timeout}
}

func joinAll(sep string, parts ...string) string {
	return strings.Join(parts, sep)
}

var errBoom = errors.New("boom")

func failingCtor() (*invoked, error) { return nil, errBoom }

func TestInvokerCall(t *testing.T) {
	a := reflection.New()
	inv := reflection.NewInvoker(a)

	info, err := a.AnalyzeFunc(newInvoked)
	require.NoError(t, err)

	out, err := inv.Call(info, []any{"worker", 30})
	require.NoError(t, err)

	got, ok := out.(*invoked)
	require.True(t, ok)
	assert.Equal(t, "worker", got.Name)
	assert.Equal(t, 30, got.Timeout)
}

func TestInvokerCall_NilBecomesZero(t *testing.T) {
	a := reflection.New()
	inv := reflection.NewInvoker(a)

	info, err := a.AnalyzeFunc(newInvoked)
	require.NoError(t, err)

	out, err := inv.Call(info, []any{nil, nil})
	require.NoError(t, err)

	got := out.(*invoked)
	assert.Empty(t, got.Name)
	assert.Zero(t, got.Timeout)
}

func TestInvokerCall_Variadic(t *testing.T) {
	a := reflection.New()
	inv := reflection.NewInvoker(a)

	info, err := a.AnalyzeFunc(joinAll)
	require.NoError(t, err)

	out, err := inv.Call(info, []any{"-", "a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "a-b-c", out)

	// Only the fixed parameter is required.
	out, err = inv.Call(info, []any{"-"})
	require.NoError(t, err)
	assert.Equal(t, "", out)

	_, err = inv.Call(info, nil)
	assert.Error(t, err)
}

func TestInvokerCall_ErrorReturn(t *testing.T) {
	a := reflection.New()
	inv := reflection.NewInvoker(a)

	info, err := a.AnalyzeFunc(failingCtor)
	require.NoError(t, err)

	_, err = inv.Call(info, nil)
	assert.ErrorIs(t, err, errBoom)
}

func TestInvokerCall_Arity(t *testing.T) {
	a := reflection.New()
	inv := reflection.NewInvoker(a)

	info, err := a.AnalyzeFunc(newInvoked)
	require.NoError(t, err)

	_, err = inv.Call(info, []any{"only one"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 2 arguments")

	_, err = inv.Call(info, []any{"worker", struct{}{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 1")
}

func TestInvokerNewStructAndSetField(t *testing.T) {
	a := reflection.New()
	inv := reflection.NewInvoker(a)

	info, err := a.AnalyzeStruct(reflect.TypeOf(invoked{}))
	require.NoError(t, err)

	obj := inv.NewStruct(info)
	require.Equal(t, reflect.Pointer, obj.Kind())

	require.NoError(t, inv.SetField(info, obj, "Name", "cache"))
	require.NoError(t, inv.SetField(info, obj, "Region", "eu-west-1"))

	got := obj.Interface().(*invoked)
	assert.Equal(t, "cache", got.Name)
	assert.Equal(t, "eu-west-1", got.Region, "promoted fields are settable through their index path")

	err = inv.SetField(info, obj, "Nope", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no exported field")

	err = inv.SetField(info, obj, "Timeout", "not an int")
	assert.Error(t, err)
}

func TestInvokerCallMethod(t *testing.T) {
	a := reflection.New()
	inv := reflection.NewInvoker(a)

	obj := reflect.ValueOf(&invoked{})

	require.NoError(t, inv.CallMethod(obj, "SetTimeout", []any{45}))
	assert.Equal(t, 45, obj.Interface().(*invoked).Timeout)

	err := inv.CallMethod(obj, "SetName", []any{""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")

	err = inv.CallMethod(obj, "Missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no method")

	err = inv.CallMethod(obj, "SetTimeout", []any{1, 2})
	assert.Error(t, err)
}

func TestCoerce(t *testing.T) {
	v, err := reflection.Coerce(nil, reflect.TypeOf(0))
	require.NoError(t, err)
	assert.Zero(t, v.Int())

	v, err = reflection.Coerce("hello", reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "hello", v.String())

	// Numeric widening is allowed.
	v, err = reflection.Coerce(int32(7), reflect.TypeOf(int64(0)))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int())

	// Conversions between unrelated kinds are not.
	_, err = reflection.Coerce(65, reflect.TypeOf(""))
	require.Error(t, err)
	assert.Equal(t, "cannot use int as string", err.Error())

	_, err = reflection.Coerce("x", reflect.TypeOf(0))
	assert.Error(t, err)
}

func ExampleInvoker_Call() {
	a := reflection.New()
	inv := reflection.NewInvoker(a)

	info, _ := a.AnalyzeFunc(func(greeting, name string) string {
		return greeting + ", " + name
	})
	out, _ := inv.Call(info, []any{"hello", "world"})
	fmt.Println(out)
	// Output: hello, world
}

package engine

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"gopkg.in/yaml.v3"
	"howett.net/plist"
)

// codec is a data format a take can parse snippet tables from.
type codec struct {
	name   string
	decode func([]byte) (any, error)
	encode func(any) ([]byte, error)
}

var codecs = []codec{
	{
		name: "yaml",
		decode: func(b []byte) (any, error) {
			var out any
			err := yaml.Unmarshal(b, &out)
			return stringKeys(out), err
		},
		encode: yaml.Marshal,
	},
	{
		name: "plist",
		decode: func(b []byte) (any, error) {
			var out any
			_, err := plist.Unmarshal(b, &out)
			return out, err
		},
		encode: func(v any) ([]byte, error) {
			return plist.MarshalIndent(v, plist.XMLFormat, "\t")
		},
	},
}

// registerModules sets up the native @scripter/ modules. Every other
// require() path goes through requireLoader.
func registerModules(registry *require.Registry) {
	for _, c := range codecs {
		registry.RegisterNativeModule("@scripter/"+c.name, c.loader)
	}
}

// loader exports parse and stringify for the codec.
func (c codec) loader(runtime *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)
	arg := func(call goja.FunctionCall, fn string) goja.Value {
		if len(call.Arguments) == 0 {
			panic(runtime.NewTypeError(fmt.Sprintf("%s.%s requires an argument", c.name, fn)))
		}
		return call.Arguments[0]
	}

	exports.Set("parse", func(call goja.FunctionCall) goja.Value {
		out, err := c.decode([]byte(arg(call, "parse").String()))
		if err != nil {
			panic(runtime.NewGoError(fmt.Errorf("%s.parse: %w", c.name, err)))
		}
		return runtime.ToValue(out)
	})

	exports.Set("stringify", func(call goja.FunctionCall) goja.Value {
		b, err := c.encode(arg(call, "stringify").Export())
		if err != nil {
			panic(runtime.NewGoError(fmt.Errorf("%s.stringify: %w", c.name, err)))
		}
		return runtime.ToValue(string(b))
	})
}

// stringKeys turns map[any]any into map[string]any so goja sees plain
// objects.
func stringKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, vv := range val {
			val[k] = stringKeys(vv)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[fmt.Sprint(k)] = stringKeys(vv)
		}
		return out
	case []any:
		for i, vv := range val {
			val[i] = stringKeys(vv)
		}
		return val
	}
	return v
}

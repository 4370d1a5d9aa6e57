package confighandling

import (
	"reflect"

	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

var pathType = reflect.TypeOf(paths.Path(""))

// InsertPathPrefix returns a copy of config in which every relative
// paths.Path value, however deeply nested in structs, slices, maps or
// pointers, has been prefixed with prefix. Absolute paths and values
// of any other type are left untouched.
//
// Only exported struct fields are visited; a config type that hides
// paths in unexported fields cannot be hydrated (nor serialized, so in
// practice this does not come up).
func InsertPathPrefix[C any](config C, prefix paths.Path) C {
	v := reflect.ValueOf(config)
	out := prefixValue(v, prefix)
	return out.Interface().(C)
}

func prefixValue(v reflect.Value, prefix paths.Path) reflect.Value {
	if !v.IsValid() {
		return v
	}

	if v.Type() == pathType {
		p := v.Interface().(paths.Path)
		if p == "" || p.IsAbs() {
			return v
		}
		return reflect.ValueOf(prefix.Join(p.String()))
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(prefixValue(v.Elem(), prefix))
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		return prefixValue(v.Elem(), prefix)

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if !out.Field(i).CanSet() {
				continue
			}
			out.Field(i).Set(prefixValue(v.Field(i), prefix))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(prefixValue(v.Index(i), prefix))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(prefixValue(v.Index(i), prefix))
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := prefixValue(iter.Key(), prefix)
			val := prefixValue(iter.Value(), prefix)
			out.SetMapIndex(k, val)
		}
		return out

	default:
		return v
	}
}

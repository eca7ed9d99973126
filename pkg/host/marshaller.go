package host

import (
	"fmt"
	"reflect"

	"github.com/lumenlang/lumen/pkg/lumen"
)

// hostMetaKey names the shared host-object metatable in the registry.
const hostMetaKey = "lumen.host.object"

// Marshaller converts values between Go and the Lumen stack using reflection.
// Pointers to structs cross the boundary by reference as userdata whose
// fields and methods are reachable from scripts; everything else is copied.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// Push converts a Go value and pushes it onto the stack.
func (m *Marshaller) Push(l *lumen.State, val any) error {
	if val == nil {
		l.PushNil()
		return nil
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Bool:
		l.PushBoolean(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		l.PushInteger(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		l.PushInteger(int64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		l.PushNumber(v.Float())
	case reflect.String:
		l.PushString(v.String())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			l.PushString(string(v.Bytes()))
			return nil
		}
		l.CreateTable(v.Len(), 0)
		for i := 0; i < v.Len(); i++ {
			if err := m.Push(l, v.Index(i).Interface()); err != nil {
				l.Pop(1)
				return err
			}
			l.RawSetInt(-2, i+1)
		}
	case reflect.Map:
		l.CreateTable(0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			if err := m.Push(l, iter.Key().Interface()); err != nil {
				l.Pop(1)
				return fmt.Errorf("map key: %w", err)
			}
			if err := m.Push(l, iter.Value().Interface()); err != nil {
				l.Pop(2)
				return fmt.Errorf("map value: %w", err)
			}
			l.SetTable(-3)
		}
	case reflect.Struct:
		// struct by value crosses as a plain table copy
		l.CreateTable(0, v.NumField())
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue
			}
			if err := m.Push(l, v.Field(i).Interface()); err != nil {
				l.Pop(1)
				return err
			}
			l.SetField(-2, field.Name)
		}
	case reflect.Ptr:
		m.pushHostObject(l, val)
	case reflect.Func:
		l.PushGoFunction(m.wrapFunc(v))
	default:
		return fmt.Errorf("cannot push a %s value", v.Kind())
	}
	return nil
}

// ToGo converts the value at idx to a Go value. targetType is optional; when
// nil, numbers become int64 if integral and float64 otherwise, and tables
// become []any when contiguous from 1 or map[string]any.
func (m *Marshaller) ToGo(l *lumen.State, idx int, targetType reflect.Type) (any, error) {
	switch l.TypeOf(idx) {
	case lumen.TypeNil, lumen.TypeNone:
		return nil, nil
	case lumen.TypeBoolean:
		return l.ToBoolean(idx), nil
	case lumen.TypeNumber:
		n, _ := l.ToNumber(idx)
		if targetType != nil {
			switch targetType.Kind() {
			case reflect.Int:
				return int(n), nil
			case reflect.Int32:
				return int32(n), nil
			case reflect.Int64:
				return int64(n), nil
			case reflect.Float32:
				return float32(n), nil
			case reflect.Float64:
				return n, nil
			}
		}
		if n == float64(int64(n)) {
			return int64(n), nil
		}
		return n, nil
	case lumen.TypeString:
		s, _ := l.ToString(idx)
		return s, nil
	case lumen.TypeTable:
		return m.tableToGo(l, idx, targetType)
	case lumen.TypeUserData, lumen.TypeLightUserData:
		return l.ToUserData(idx), nil
	default:
		return nil, fmt.Errorf("cannot convert a %s value", l.TypeName(l.TypeOf(idx)))
	}
}

func (m *Marshaller) tableToGo(l *lumen.State, idx int, targetType reflect.Type) (any, error) {
	if idx < 0 && idx > lumen.RegistryIndex {
		idx = l.Top() + idx + 1
	}

	if targetType != nil {
		switch targetType.Kind() {
		case reflect.Slice:
			return m.tableToSlice(l, idx, targetType)
		case reflect.Map:
			return m.tableToMap(l, idx, targetType)
		case reflect.Struct:
			return m.tableToStruct(l, idx, targetType)
		case reflect.Ptr:
			if targetType.Elem().Kind() == reflect.Struct {
				v, err := m.tableToStruct(l, idx, targetType.Elem())
				if err != nil {
					return nil, err
				}
				p := reflect.New(targetType.Elem())
				p.Elem().Set(reflect.ValueOf(v))
				return p.Interface(), nil
			}
		}
	}

	// no target: contiguous integer keys from 1 become a slice
	n := l.ObjLen(idx)
	total := 0
	l.PushNil()
	for l.Next(idx) {
		total++
		l.Pop(1)
	}
	if n > 0 && n == total {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			l.RawGetInt(idx, i)
			v, err := m.ToGo(l, -1, nil)
			l.Pop(1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	out := make(map[string]any, total)
	l.PushNil()
	for l.Next(idx) {
		v, err := m.ToGo(l, -1, nil)
		if err != nil {
			l.Pop(2)
			return nil, err
		}
		var key string
		switch l.TypeOf(-2) {
		case lumen.TypeString:
			key, _ = l.ToString(-2)
		case lumen.TypeNumber:
			num, _ := l.ToNumber(-2)
			key = fmt.Sprintf("%v", num)
		default:
			bad := l.TypeName(l.TypeOf(-2))
			l.Pop(2)
			return nil, fmt.Errorf("cannot use a %s key", bad)
		}
		out[key] = v
		l.Pop(1)
	}
	return out, nil
}

func (m *Marshaller) tableToSlice(l *lumen.State, idx int, targetType reflect.Type) (any, error) {
	elemType := targetType.Elem()
	n := l.ObjLen(idx)
	slice := reflect.MakeSlice(targetType, 0, n)
	for i := 1; i <= n; i++ {
		l.RawGetInt(idx, i)
		v, err := m.ToGo(l, -1, elemType)
		l.Pop(1)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		rv, err := conform(v, elemType)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		slice = reflect.Append(slice, rv)
	}
	return slice.Interface(), nil
}

func (m *Marshaller) tableToMap(l *lumen.State, idx int, targetType reflect.Type) (any, error) {
	keyType, valType := targetType.Key(), targetType.Elem()
	out := reflect.MakeMap(targetType)
	l.PushNil()
	for l.Next(idx) {
		k, err := m.ToGo(l, -2, keyType)
		if err != nil {
			l.Pop(2)
			return nil, fmt.Errorf("map key: %w", err)
		}
		v, err := m.ToGo(l, -1, valType)
		if err != nil {
			l.Pop(2)
			return nil, fmt.Errorf("map value: %w", err)
		}
		kv, err := conform(k, keyType)
		if err != nil {
			l.Pop(2)
			return nil, fmt.Errorf("map key: %w", err)
		}
		vv, err := conform(v, valType)
		if err != nil {
			l.Pop(2)
			return nil, fmt.Errorf("map value: %w", err)
		}
		out.SetMapIndex(kv, vv)
		l.Pop(1)
	}
	return out.Interface(), nil
}

func (m *Marshaller) tableToStruct(l *lumen.State, idx int, structType reflect.Type) (any, error) {
	out := reflect.New(structType).Elem()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.PkgPath != "" {
			continue
		}
		l.GetField(idx, field.Name)
		if l.IsNil(-1) {
			l.Pop(1)
			continue
		}
		v, err := m.ToGo(l, -1, field.Type)
		l.Pop(1)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		rv, err := conform(v, field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		out.Field(i).Set(rv)
	}
	return out.Interface(), nil
}

// conform adapts v to typ, converting where the kinds allow it.
func conform(v any, typ reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(typ), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(typ) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(typ) {
		return rv.Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", rv.Type(), typ)
}

// wrapFunc adapts a Go function into a stack-calling convention function.
// Arguments are converted to the parameter types, results pushed in order.
func (m *Marshaller) wrapFunc(fn reflect.Value) lumen.Function {
	return func(l *lumen.State) int {
		ft := fn.Type()
		numIn := ft.NumIn()
		variadic := ft.IsVariadic()
		nargs := l.Top()

		if variadic {
			if nargs < numIn-1 {
				l.Errorf("expected at least %d arguments, got %d", numIn-1, nargs)
			}
		} else if nargs != numIn {
			l.Errorf("expected %d arguments, got %d", numIn, nargs)
		}

		args := make([]reflect.Value, nargs)
		for i := 0; i < nargs; i++ {
			var target reflect.Type
			if variadic && i >= numIn-1 {
				target = ft.In(numIn - 1).Elem()
			} else {
				target = ft.In(i)
			}
			v, err := m.ToGo(l, i+1, target)
			if err != nil {
				l.Errorf("argument %d: %s", i+1, err.Error())
			}
			rv, err := conform(v, target)
			if err != nil {
				l.Errorf("argument %d: %s", i+1, err.Error())
			}
			args[i] = rv
		}

		results := fn.Call(args)
		for _, res := range results {
			if err := m.Push(l, res.Interface()); err != nil {
				l.Errorf("result conversion: %s", err.Error())
			}
		}
		return len(results)
	}
}

// pushHostObject pushes a pointer value as a userdata carrying the shared
// host-object metatable, so scripts reach its fields and methods by name.
func (m *Marshaller) pushHostObject(l *lumen.State, val any) {
	l.NewUserData(val)
	ensureHostMetatable(l, m)
	l.GetField(lumen.RegistryIndex, hostMetaKey)
	l.SetMetatable(-2)
}

func ensureHostMetatable(l *lumen.State, m *Marshaller) {
	l.GetField(lumen.RegistryIndex, hostMetaKey)
	if !l.IsNil(-1) {
		l.Pop(1)
		return
	}
	l.Pop(1)

	l.NewTable()
	l.PushGoFunction(m.hostIndex)
	l.SetField(-2, "__index")
	l.PushGoFunction(m.hostNewIndex)
	l.SetField(-2, "__newindex")
	l.SetField(lumen.RegistryIndex, hostMetaKey)
}

// hostIndex resolves obj.key: methods first (bound to the receiver), then
// exported struct fields. Unknown names yield nil.
func (m *Marshaller) hostIndex(l *lumen.State) int {
	obj := l.CheckUserData(1)
	key := l.CheckString(2)

	rv := reflect.ValueOf(obj)
	if method := rv.MethodByName(key); method.IsValid() {
		l.PushGoFunction(m.wrapFunc(method))
		return 1
	}
	if rv.Kind() == reflect.Ptr && rv.Elem().Kind() == reflect.Struct {
		if field := rv.Elem().FieldByName(key); field.IsValid() && field.CanInterface() {
			if err := m.Push(l, field.Interface()); err != nil {
				l.Errorf("field %s: %s", key, err.Error())
			}
			return 1
		}
	}
	l.PushNil()
	return 1
}

// hostNewIndex assigns obj.key = value for exported settable struct fields.
func (m *Marshaller) hostNewIndex(l *lumen.State) int {
	obj := l.CheckUserData(1)
	key := l.CheckString(2)

	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		l.Errorf("cannot assign fields on a %T host object", obj)
	}
	field := rv.Elem().FieldByName(key)
	if !field.IsValid() || !field.CanSet() {
		l.Errorf("no assignable field %q on %T", key, obj)
	}
	v, err := m.ToGo(l, 3, field.Type())
	if err != nil {
		l.Errorf("field %s: %s", key, err.Error())
	}
	fv, err := conform(v, field.Type())
	if err != nil {
		l.Errorf("field %s: %s", key, err.Error())
	}
	field.Set(fv)
	return 0
}

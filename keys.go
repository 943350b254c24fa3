package crudboot

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// ParseKey converts the textual form of a key (path parameter, query value or
// generated primary key) into K.
func ParseKey[K any](s string) (K, error) {
	var key K
	switch p := any(&key).(type) {
	case *string:
		*p = s
		return key, nil
	case *uuid.UUID:
		id, err := uuid.Parse(s)
		if err != nil {
			return key, fmt.Errorf("invalid key %q: %w", s, err)
		}
		*p = id
		return key, nil
	}

	v := reflect.ValueOf(&key).Elem()
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return key, fmt.Errorf("invalid key %q: %w", s, err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return key, fmt.Errorf("invalid key %q: %w", s, err)
		}
		v.SetUint(n)
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return key, fmt.Errorf("invalid key %q: %w", s, err)
		}
		v.SetBool(b)
	default:
		return key, fmt.Errorf("unsupported key type %s", v.Type())
	}
	return key, nil
}

func keyString(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case []byte:
		return string(k)
	case fmt.Stringer:
		return k.String()
	}
	return fmt.Sprint(v)
}

package io

import "reflect"

type sizer interface {
	Size() int
}

// varUintSize returns the number of bytes (*BinWriter).WriteVarUint would
// produce for val.
func varUintSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

func elemByteSize(k reflect.Kind) int {
	switch k {
	case reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32:
		return 4
	case reflect.Int64, reflect.Uint64:
		return 8
	default:
		panic("elemByteSize: unsupported element kind")
	}
}

// GetVarSize returns the number of bytes v occupies when written with the
// BinWriter's Write* methods, without actually encoding it. It panics for
// types it doesn't know how to size.
func GetVarSize(v interface{}) int {
	switch val := v.(type) {
	case int:
		return varUintSize(uint64(val))
	case uint:
		return varUintSize(uint64(val))
	case string:
		return varUintSize(uint64(len(val))) + len(val)
	case []byte:
		return varUintSize(uint64(len(val))) + len(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		n := rv.Len()
		return varUintSize(uint64(n)) + n*elemByteSize(rv.Type().Elem().Kind())
	case reflect.Slice:
		n := rv.Len()
		total := varUintSize(uint64(n))
		for i := 0; i < n; i++ {
			el := rv.Index(i).Interface()
			s, ok := el.(sizer)
			if !ok {
				panic("GetVarSize: slice element does not implement Size() int")
			}
			total += s.Size()
		}
		return total
	default:
		panic("GetVarSize: unsupported type")
	}
}

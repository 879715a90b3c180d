package tablehook

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Every conversion between a raw code address and a typed function lives in
// this file.

var wordSize = unsafe.Sizeof(uintptr(0))

// funcval mirrors the runtime's closure header; a func value is a pointer
// to one.
type funcval struct {
	fn uintptr
}

// Func turns a code address into a func value of type F. The code at addr
// must follow the Go calling convention for F and must not expect a closure
// context.
func Func[F any](code uintptr) F {
	var f F
	if t := reflect.TypeOf(f); t == nil || t.Kind() != reflect.Func {
		panic(fmt.Sprintf("tablehook: Func needs a func type, got %v", t))
	}
	if code == 0 {
		return f
	}

	fv := &funcval{fn: code}
	*(*unsafe.Pointer)(unsafe.Pointer(&f)) = unsafe.Pointer(fv)
	return f
}

// FuncAddr returns the entry address of a top level function.
func FuncAddr(fn interface{}) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic(fmt.Sprintf("tablehook: FuncAddr needs a func, got %v", v.Kind()))
	}
	return v.Pointer()
}

// ReadWord reads the pointer sized value at addr.
func ReadWord(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

// WriteWord stores v at addr without touching page protection.
func WriteWord(addr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

// SlotAddr is the address of entry ord in the table at table.
func SlotAddr[O ~int](table uintptr, ord O) uintptr {
	return table + uintptr(ord)*wordSize
}

// Entry reads entry ord of a table.
func Entry[O ~int](table uintptr, ord O) uintptr {
	return ReadWord(SlotAddr(table, ord))
}

// Slot resolves entry ord of a table as a typed function.
func Slot[F any, O ~int](table uintptr, ord O) F {
	return Func[F](Entry(table, ord))
}

// VtableOf returns the dispatch table pointer stored in the first word of
// the object.
func VtableOf(object uintptr) uintptr {
	return ReadWord(object)
}

// Method resolves virtual entry ord of an object as a typed function.
func Method[F any, O ~int](object uintptr, ord O) F {
	return Slot[F](VtableOf(object), ord)
}

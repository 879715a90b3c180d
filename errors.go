package tablehook

import (
	"errors"
	"fmt"
)

var (
	// ErrNullModule means no module of that name is loaded
	ErrNullModule = errors.New("module not loaded")
	// ErrModuleInfo means base address or image size could not be queried
	ErrModuleInfo = errors.New("module information query failed")
	// ErrSymbolNotFound means the module does not export the symbol
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrStrConversion means a name contains an embedded NUL byte
	ErrStrConversion = errors.New("string contains NUL byte")
	// ErrNullInterface means the factory returned a null pointer
	ErrNullInterface = errors.New("factory returned null interface")
	// ErrBadInterface means the factory returned a pointer unusable as the interface type
	ErrBadInterface = errors.New("factory returned bad interface pointer")
	// ErrNullVtable means the object's table pointer is null
	ErrNullVtable = errors.New("null vtable")
	// ErrNullPointer means a patch target is null
	ErrNullPointer = errors.New("null pointer")
	// ErrUnalignedPointer means a patch target is not aligned for its value type
	ErrUnalignedPointer = errors.New("unaligned pointer")
	// ErrPatternNotFound means a byte or string scan found nothing
	ErrPatternNotFound = errors.New("pattern not found")
	// ErrAlreadyRestored means a patch was already restored
	ErrAlreadyRestored = errors.New("patch already restored")
	// ErrOrdinalRange means an ordinal lies outside its table
	ErrOrdinalRange = errors.New("ordinal out of range")
	// ErrDoubleHook means the address is already hooked
	ErrDoubleHook = errors.New("double hook")
	// ErrUnsupported means the platform cannot perform the operation
	ErrUnsupported = errors.New("unsupported on this platform")
)

// ModuleError attaches the module name to a module level failure.
type ModuleError struct {
	Module string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("%q: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// AlignmentError reports a pointer that needs Offset more bytes to reach
// the Required alignment.
type AlignmentError struct {
	Address  uintptr
	Required uintptr
	Offset   uintptr
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("pointer %#x is unaligned; it needs to be offset by %d bytes to reach the required alignment of %d bytes",
		e.Address, e.Offset, e.Required)
}

func (e *AlignmentError) Is(target error) bool { return target == ErrUnalignedPointer }

// StrConversionError is returned for names that cannot become C strings.
type StrConversionError struct {
	Name  string
	Index int
}

func (e *StrConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q to a C string: NUL byte at index %d", e.Name, e.Index)
}

func (e *StrConversionError) Is(target error) bool { return target == ErrStrConversion }

package tablehook

import (
	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

const (
	opPushImm32 = 0x68
	maxInstLen  = 15
)

func archMode() int {
	return int(wordSize * 8)
}

// code returns up to n readable bytes of the image starting at addr.
func (m *Module) code(addr uintptr, n int) ([]byte, error) {
	for _, s := range m.spans {
		if addr < s.start || addr >= s.end {
			continue
		}
		if avail := int(s.end - addr); avail < n {
			n = avail
		}
		return makeSliceFromPointer(addr, n), nil
	}
	return nil, &ModuleError{Module: m.Name, Err: errors.Errorf("%#x is not readable code of the image", addr)}
}

// Skip returns the address of the instruction count instructions after the
// one at addr.
func (m *Module) Skip(addr uintptr, count int) (uintptr, error) {
	for i := 0; i < count; i++ {
		code, err := m.code(addr, maxInstLen)
		if err != nil {
			return 0, err
		}

		inst, err := x86asm.Decode(code, archMode())
		if err != nil {
			return 0, &ModuleError{Module: m.Name, Err: errors.Wrapf(err, "decode at %#x", addr)}
		}
		addr += uintptr(inst.Len)
	}
	return addr, nil
}

// Operand decodes the instruction at addr and returns the address it
// refers to.
func (m *Module) Operand(addr uintptr) (uintptr, error) {
	code, err := m.code(addr, maxInstLen)
	if err != nil {
		return 0, err
	}

	target, err := DecodeOperand(code, addr, archMode())
	if err != nil {
		return 0, &ModuleError{Module: m.Name, Err: err}
	}
	return target, nil
}

// DecodeOperand decodes the instruction in code, located at pc, and returns
// the first address among its arguments: a RIP relative or absolute memory
// operand, a branch target or an immediate.
func DecodeOperand(code []byte, pc uintptr, mode int) (uintptr, error) {
	inst, err := x86asm.Decode(code, mode)
	if err != nil {
		return 0, errors.Wrapf(err, "decode at %#x", pc)
	}

	next := pc + uintptr(inst.Len)
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}

		switch a := arg.(type) {
		case x86asm.Mem:
			if a.Base == x86asm.RIP {
				return next + uintptr(a.Disp), nil
			}
			if a.Base == 0 && a.Index == 0 {
				return truncate(uint64(a.Disp), mode), nil
			}
		case x86asm.Rel:
			return next + uintptr(int64(a)), nil
		case x86asm.Imm:
			return truncate(uint64(a), mode), nil
		}
	}

	return 0, errors.Wrapf(ErrPatternNotFound, "no address operand in %q at %#x", inst.String(), pc)
}

func truncate(v uint64, mode int) uintptr {
	if mode == 32 {
		return uintptr(uint32(v))
	}
	return uintptr(v)
}

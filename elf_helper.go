package tablehook

import (
	"debug/elf"
	"errors"
	"sort"
)

type SymbolSlice []elf.Symbol

func (a SymbolSlice) Len() int           { return len(a) }
func (a SymbolSlice) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a SymbolSlice) Less(i, j int) bool { return a[i].Value < a[j].Value }

// ElfInfo holds the symbols of an ELF image on disk.
type ElfInfo struct {
	File string
	// Dynamic are the exported symbols.
	Dynamic SymbolSlice
	// Symbol is the full symbol table, when the file is not stripped.
	Symbol SymbolSlice
	// LoadBase is the lowest virtual address of a PT_LOAD segment.
	LoadBase uint64
}

func NewElfInfo(file string) (*ElfInfo, error) {
	ei := &ElfInfo{File: file}
	err := ei.init()
	if err != nil {
		return nil, err
	}

	return ei, nil
}

func (ei *ElfInfo) init() error {
	f, err := elf.Open(ei.File)
	if err != nil {
		return err
	}

	defer f.Close()

	first := true
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		base := p.Vaddr
		if p.Align > 1 {
			base &^= p.Align - 1
		}
		if first || base < ei.LoadBase {
			ei.LoadBase = base
			first = false
		}
	}

	// either table may be missing: stripped files have no .symtab and
	// static executables have no .dynsym
	dyn, _ := f.DynamicSymbols()
	ei.Dynamic = defined(dyn)
	sym, _ := f.Symbols()
	ei.Symbol = defined(sym)

	if len(ei.Dynamic) == 0 && len(ei.Symbol) == 0 {
		return errors.New("no symbols")
	}

	sort.Sort(ei.Dynamic)
	sort.Sort(ei.Symbol)
	return nil
}

func defined(syms []elf.Symbol) SymbolSlice {
	out := make(SymbolSlice, 0, len(syms))
	for _, s := range syms {
		if s.Value == 0 || s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Lookup returns the link time address of name, preferring exported
// symbols.
func (ei *ElfInfo) Lookup(name string) (uint64, bool) {
	for _, table := range []SymbolSlice{ei.Dynamic, ei.Symbol} {
		for _, s := range table {
			if s.Name == name {
				return s.Value, true
			}
		}
	}
	return 0, false
}

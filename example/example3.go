package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stevedomin/termtable"

	"github.com/brahma-adshonor/tablehook"
)

var (
	stringsFlag  []string
	patternsFlag []string
	symbolsFlag  []string
	derefFlag    []int
	skipFlag     int
	exportsFlag  int
	entriesFlag  int
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <module>",
		Short: "Search a loaded module for strings, signatures and symbols",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}

	cmd.Flags().StringArrayVar(&stringsFlag, "string", nil, "string to find, followed back to the push that references it")
	cmd.Flags().IntSliceVar(&derefFlag, "deref", nil, "offsets from a string's push reference to read pointers at")
	cmd.Flags().StringArrayVar(&patternsFlag, "pattern", nil, `signature to find, e.g. "68 ?? ?? ?? ?? E8"`)
	cmd.Flags().IntVar(&skipFlag, "skip", -1, "decode the operand this many instructions past each signature match")
	cmd.Flags().StringArrayVar(&symbolsFlag, "symbol", nil, "exported symbol to resolve")
	cmd.Flags().IntVar(&exportsFlag, "exports", 0, "list this many exports")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	m, err := tablehook.FindModule(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s %s base=%#x end=%#x size=%#x\n", m.Name, m.Path, m.Base, m.End, m.Size)

	for _, s := range stringsFlag {
		scanString(m, s)
	}

	for _, s := range patternsFlag {
		p, err := tablehook.ParsePattern(s)
		if err != nil {
			return err
		}
		addr, ok := m.FindPattern(p)
		if !ok {
			fmt.Printf("pattern %q: not found\n", s)
			continue
		}
		fmt.Printf("pattern %q: %#x\n", s, addr)

		if skipFlag < 0 {
			continue
		}
		at, err := m.Skip(addr, skipFlag)
		if err == nil {
			var target uintptr
			if target, err = m.Operand(at); err == nil {
				fmt.Printf("  operand at %#x: %#x\n", at, target)
			}
		}
		if err != nil {
			log.WithError(err).WithField("pattern", s).Warn("operand")
		}
	}

	for _, s := range symbolsFlag {
		addr, err := m.Proc(s)
		if err != nil {
			log.WithError(err).Warn("symbol")
			continue
		}
		fmt.Printf("symbol %s: %#x\n", s, addr)
	}

	if exportsFlag > 0 {
		exports, err := m.Exports()
		if err != nil {
			return err
		}
		t := newTable("Ordinal", "Address", "Name")
		for i, e := range exports {
			if i == exportsFlag {
				break
			}
			t.AddRow([]string{fmt.Sprint(e.Ordinal), fmt.Sprintf("%#x", e.Address), e.Name})
		}
		fmt.Println(t.Render())
		if len(exports) > exportsFlag {
			fmt.Printf("%d of %d exports shown\n", exportsFlag, len(exports))
		}
	}
	return nil
}

// scanString finds s, the push instruction referencing it and the pointers
// stored around that instruction.
func scanString(m *tablehook.Module, s string) {
	addr, err := m.Locate(fmt.Sprintf("string %q", s), []byte(s+"\x00"))
	if err != nil {
		log.WithError(err).Warn("string")
		return
	}
	fmt.Printf("string %q: %#x\n", s, addr)

	push, ok := m.FindPushReference(addr)
	if !ok {
		fmt.Printf("  no push reference\n")
		return
	}
	fmt.Printf("  pushed at %#x\n", push)

	for _, off := range derefFlag {
		ptr, err := m.ReadPointer(push + uintptr(off))
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"string": s, "offset": off}).Warn("deref")
			continue
		}
		fmt.Printf("  [%#x%+d] = %#x\n", push, off, ptr)
	}
}

func newTable(header ...string) *termtable.Table {
	t := termtable.NewTable(nil, &termtable.TableOptions{
		Padding:      2,
		UseSeparator: false,
	})
	t.SetHeader(header)
	return t
}

func newInterfaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interface <module> <name>",
		Short: "Create an interface through a module's CreateInterface export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := tablehook.OpenFactoryModule(args[0])
			if err != nil {
				return err
			}

			object, err := fm.Interface(args[1])
			if err != nil {
				return err
			}
			table := tablehook.VtableOf(object)
			fmt.Printf("%s: object=%#x vtable=%#x\n", args[1], object, table)

			if table == 0 {
				return nil
			}
			if entriesFlag <= 0 {
				return nil
			}
			t := newTable("Ordinal", "Entry", "In module")
			for i := 0; i < entriesFlag; i++ {
				entry := tablehook.Entry(table, i)
				t.AddRow([]string{fmt.Sprint(i), fmt.Sprintf("%#x", entry), fmt.Sprint(fm.Contains(entry))})
			}
			fmt.Println(t.Render())
			return nil
		},
	}

	cmd.Flags().IntVar(&entriesFlag, "entries", 0, "print this many vtable entries")
	return cmd
}

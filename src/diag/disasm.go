package diag

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Disassemble decodes the single instruction at the start of code
// (read by the caller via vmm, from the faulting instruction pointer)
// and renders it in Go assembler syntax for inclusion in a fault dump -- a
// real disassembly of the faulting instruction instead of a bare hex
// listing of the bytes at rip.
func Disassemble(code []byte, pc uint64) (string, error) {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return "", fmt.Errorf("diag: decode at %#x: %w", pc, err)
	}
	return x86asm.GoSyntax(inst, pc, nil), nil
}

// FaultDump formats a register-snapshot-plus-disassembly block for an
// architectural fault; intr's dispatch panics with it when a fault
// vector fires with no registered handler (see intr.unhandledFault).
func FaultDump(vector int, rip uint64, code []byte, regs map[string]uint64) string {
	text, err := Disassemble(code, rip)
	if err != nil {
		text = fmt.Sprintf("<undecodable: %v>", err)
	}
	out := fmt.Sprintf("unhandled fault: vector 0x%02x at rip=%#x\n  %s\n", vector, rip, text)
	for _, name := range []string{"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp"} {
		if v, ok := regs[name]; ok {
			out += fmt.Sprintf("  %s=%#016x\n", name, v)
		}
	}
	return out
}

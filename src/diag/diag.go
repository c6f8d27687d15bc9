// Package diag centralizes the kernel's boot and panic diagnostics:
// plain fmt.Printf-style boot banners alongside raw register dumps,
// kept deliberately un-structured -- there is no zap/zerolog adoption
// here -- but routed through one shared pair of entry points instead
// of every component inventing its own Printf calls.
package diag

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/message"
)

// Console is where Bootf writes. Production boot code repoints this at
// the TTY sink once it is live; hosted tests leave it at the default.
var Console io.Writer = os.Stdout

// printer formats the human-readable numbers ("1,048,576 pages") that
// appear in boot banners. English is a fixed choice -- this kernel has
// no locale negotiation, there being no command line to negotiate one
// from.
var printer = message.NewPrinter(message.MatchLanguage("en"))

// Bootf writes a formatted boot-diagnostic line to Console. Verbs
// behave as with fmt.Fprintf, except that the message package's
// %d/%v number formatting is used, so large counts print with
// thousands separators the way a real boot banner wants them
// ("Reserved 65,536 pages (256MB)") instead of a bare fmt.Sprintf
// digit run.
func Bootf(format string, args ...interface{}) {
	printer.Fprintf(Console, format, args...)
}

// Fatal reports a boot-time-fatal condition and halts. It is distinct
// from Panicf because it may run before the TTY/log machinery is
// fully initialized -- Fatal writes directly to Console rather than
// relying on any higher-level sink, then panics so the halt is
// visible to a caller that recovers to print a stack trace.
//
// Reserved for the boot-time-fatal error kind: the heap failing to
// initialize, no controller discovered, no usable physical memory.
// Never called once the heap and routing table are live.
func Fatal(format string, args ...interface{}) {
	fmt.Fprintf(Console, "fatal: "+format+"\n", args...)
	panic(fmt.Sprintf(format, args...))
}

// Panicf reports a programmer-error condition: an unhandled vector
// firing, a double free, an invalid ISA line index. These are
// non-recoverable by contract (see error handling design) but occur
// after boot, with logging fully available, so Panicf goes through
// the ordinary panic path rather than Fatal's direct-console write.
func Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// Package tool abstracts external tool invocation behind the Invoker
// interface: run a command with arguments, a bounded wait, and captured
// output. ExecInvoker is the real subprocess implementation; tests provide
// doubles. Failures are classified into the domain error taxonomy so the
// pipeline never has to inspect raw exec errors.
package tool

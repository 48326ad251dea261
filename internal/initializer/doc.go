// Package initializer discovers the conversion roots of a module.
//
// It harvests user annotations from two places and seeds one metadata
// table (the Registry) from both:
//
//   - the module-wide annotation table (llvm.global.annotations), holding
//     one record per annotated function or global variable;
//   - calls to the variable annotation intrinsic (llvm.var.annotation)
//     inside each function, one per annotated local.
//
// SCAN ORDER:
//
//  1. Function annotations. Each annotated function is "enabled" and its
//     call/invoke sites (never the function) become candidates. The call
//     sites are filtered by type straight away.
//  2. Variable annotations on globals. Not filtered here.
//  3. Local annotations, function by function. A function holding a local
//     annotation with an explicit target becomes a starting point. The
//     optnone attribute is cleared on every visited function.
//
// A local annotation on an instruction names the instruction's first
// operand, numbered the LLVM way: arguments first, callee last. A call
// without arguments therefore names its callee; the type filter later
// drops such a function as an unsupported target.
//
// A value is a root iff an annotation naming it parsed successfully. The
// type filter (RemoveNonFloat) keeps only values whose storage resolves,
// through arrays and pointers, to a floating-point type.
//
// ERRORS:
//
// Nothing here fails hard. A malformed annotation string produces a
// diagnostic on the pass's diagnostic writer and is skipped; malformed
// annotation records and unsupported targets are skipped and recorded in
// State.Diagnostics. The worst outcome is an empty result.
//
// A Pass holds configuration only. All discovery results live in a State
// threaded through the scanners, so scans can run in isolation.
package initializer

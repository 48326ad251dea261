// Package ir provides the program representation scanned by the initializer.
//
// The model is a small, LLVM-shaped IR: typed values, module
// globals, functions made of basic blocks, a handful of instructions and
// the constant forms a frontend uses to encode annotations. It carries only
// what root discovery needs.
//
// This package contains data definitions and traversal helpers only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value identity is pointer identity. Side tables key on Value.
//   - Use lists are maintained at construction time (Block.Append,
//     NewConstantExpr, NewCall, ...). Never append to Block.Instrs directly.
//   - Typed pointers are the default; PointerType with a nil Elem is the
//     opaque "ptr" type.
package ir

// Package annotation decodes the directive strings users attach to
// variables and functions.
//
// A directive names the numeric metadata of the annotated value and,
// optionally, an explicit conversion target:
//
//	target('accumulator') backtracking scalar(range(-1, 1) error(1e-3))
//	struct[scalar(range(0, 255)), void]
//
// Parse never panics on hostile input; any string that does not follow
// the grammar yields a *SyntaxError.
package annotation

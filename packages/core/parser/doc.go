// Package parser parses suite selectors.
//
// A selector names a module path, optionally followed by "::" and a comma
// separated list of test names. Space separated paths share one selector,
// and a leading "!" excludes a path instead of including it. A test name may
// carry a slice such as TestRoles[1:] or TestRoles[::-1] that picks the
// variants of a parameterized test.
package parser

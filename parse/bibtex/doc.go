// Package bibtex parses BibTeX into an in-memory, read-only Database.
//
// Parsing is zero-copy: keys, field names and literal values are views into
// the input, and only concatenations or normalized text allocate. Large
// inputs can be split at record boundaries and parsed by several workers;
// the result is the same as a sequential parse.
//
// Grammar accepted:
//
//	file     = { record | "%" line | text }
//	record   = "@" type ( "{" body "}" | "(" body ")" )
//	body     = entry | string | preamble | comment
//	entry    = key [ "," [ field { "," field } [ "," ] ] ]
//	field    = name "=" value
//	string   = name "=" value [ "," ]
//	preamble = value
//	value    = operand { "#" operand }
//	operand  = "{" balanced "}" | '"' quoted '"' | number | name
//
// String variables are resolved in two phases: every @string of the input
// is collected first, then all references are expanded. A later definition
// of the same name replaces an earlier one.
package bibtex

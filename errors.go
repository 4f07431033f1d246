package leandoc

import "fmt"

// ParseError reports the first malformed structure encountered by the
// parser. Parsing aborts at the first fault; no recovery is attempted.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}

// GenError reports a construct the Typst generator cannot represent, such
// as an unresolved include:: or directive, an unknown template name, or a
// passthrough node while raw passthrough is disabled.
type GenError struct {
	Line    int
	Message string
}

func (e *GenError) Error() string {
	return fmt.Sprintf("typst generation error at line %d: %s", e.Line, e.Message)
}

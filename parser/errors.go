package parser

import (
	"fmt"

	"github.com/indlang/indc/token"
)

// ExpectedOneOfKindGotKind follows a panic/recover parse-error idiom:
// recursive-descent helpers panic with a typed
// error instead of threading error returns through every call, and Parse
// recovers at statement/toplevel boundaries.
type ExpectedOneOfKindGotKind struct {
	Expected []token.Kind
	Got      token.Kind
	Line     int
	Column   int
}

func (e ExpectedOneOfKindGotKind) Error() string {
	return fmt.Sprintf("expected one of %v, got %s at %d:%d", e.Expected, e.Got, e.Line, e.Column)
}

// NotYetSupported reports use of a reserved keyword the grammar tokenizes
// but does not implement.
type NotYetSupported struct {
	Keyword string
	Line    int
	Column  int
}

func (e NotYetSupported) Error() string {
	return fmt.Sprintf("'%s' is reserved but not yet supported at %d:%d", e.Keyword, e.Line, e.Column)
}

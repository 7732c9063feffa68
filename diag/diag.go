// Package diag implements a structured diagnostic model: every error
// and warning carries a position, an optional length and
// suggestion, and can be rendered against the original source line.
package diag

import (
	"fmt"
	"strings"
)

type Level int

const (
	Error Level = iota
	Warning
	Note
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "diagnostic"
	}
}

// Diagnostic is the structured record carried alongside the legacy
// formatted string every stage also produces.
type Diagnostic struct {
	Level      Level
	Message    string
	Line       int
	Column     int
	Length     int
	Suggestion string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Level, d.Message)
}

// Reporter accumulates diagnostics against one source unit and renders them
// with the source line and an underline, the way
// original_source/src/error_reporter.cpp does, minus ANSI coloring (that is
// the CLI's job).
type Reporter struct {
	Filename    string
	lines       []string
	diagnostics []Diagnostic
	errorCount  int
	warnCount   int
}

func NewReporter(source, filename string) *Reporter {
	return &Reporter{
		Filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

func (r *Reporter) add(level Level, message string, line, column, length int) *Diagnostic {
	if length <= 0 {
		length = 1
	}
	r.diagnostics = append(r.diagnostics, Diagnostic{
		Level: level, Message: message, Line: line, Column: column, Length: length,
	})
	switch level {
	case Error:
		r.errorCount++
	case Warning:
		r.warnCount++
	}
	return &r.diagnostics[len(r.diagnostics)-1]
}

func (r *Reporter) Error(message string, line, column int) *Diagnostic {
	return r.add(Error, message, line, column, 1)
}

func (r *Reporter) ErrorLen(message string, line, column, length int) *Diagnostic {
	return r.add(Error, message, line, column, length)
}

func (r *Reporter) Warning(message string, line, column int) *Diagnostic {
	return r.add(Warning, message, line, column, 1)
}

func (r *Reporter) Note(message string, line, column int) *Diagnostic {
	return r.add(Note, message, line, column, 1)
}

// Add appends an already-built Diagnostic (used when a stage constructs
// one with a Suggestion already attached).
func (r *Reporter) Add(d Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
	switch d.Level {
	case Error:
		r.errorCount++
	case Warning:
		r.warnCount++
	}
}

func (r *Reporter) HasErrors() bool      { return r.errorCount > 0 }
func (r *Reporter) ErrorCount() int      { return r.errorCount }
func (r *Reporter) WarningCount() int    { return r.warnCount }
func (r *Reporter) Diagnostics() []Diagnostic { return r.diagnostics }

func (r *Reporter) sourceLine(n int) string {
	if n < 1 || n > len(r.lines) {
		return ""
	}
	return r.lines[n-1]
}

func underline(column, length int) string {
	if column < 1 {
		return ""
	}
	if length < 1 {
		length = 1
	}
	return strings.Repeat(" ", column-1) + strings.Repeat("^", length)
}

// Render formats every accumulated diagnostic with a "level: message"
// line, a "--> file:line:col" pointer,
// the source line, an underline, and an optional "help:" suggestion.
func (r *Reporter) Render() string {
	var b strings.Builder
	for _, d := range r.diagnostics {
		fmt.Fprintf(&b, "%s: %s\n", d.Level, d.Message)
		if d.Line >= 1 {
			fmt.Fprintf(&b, "  --> %s:%d:%d\n", r.Filename, d.Line, d.Column)
			if line := r.sourceLine(d.Line); line != "" {
				fmt.Fprintf(&b, "%5d | %s\n", d.Line, line)
				fmt.Fprintf(&b, "      | %s\n", underline(d.Column, d.Length))
			}
		}
		if d.Suggestion != "" {
			fmt.Fprintf(&b, "  help: %s\n", d.Suggestion)
		}
		b.WriteByte('\n')
	}
	if r.errorCount > 0 || r.warnCount > 0 {
		parts := []string{}
		if r.errorCount > 0 {
			parts = append(parts, fmt.Sprintf("%d error(s)", r.errorCount))
		}
		if r.warnCount > 0 {
			parts = append(parts, fmt.Sprintf("%d warning(s)", r.warnCount))
		}
		fmt.Fprintf(&b, "%s generated.\n", strings.Join(parts, ", "))
	}
	return b.String()
}

// Package output reports progress to the terminal and delivers rendered prompts.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	infoSymbol    = "i"
	warningSymbol = "!"
	successSymbol = "✓"
	statusFormat  = "%s%s%s %s\n"
	openBracket   = "["
	closeBracket  = "]"
)

// Reporter writes bracketed status lines such as "[i] Token count: 12".
// Colors are used only when the destination is a terminal.
type Reporter struct {
	writer   io.Writer
	bracket  *color.Color
	info     *color.Color
	warning  *color.Color
	failure  *color.Color
	success  *color.Color
	emphasis *color.Color
}

// NewReporter creates a Reporter writing to writer.
func NewReporter(writer io.Writer) *Reporter {
	reporter := &Reporter{
		writer:   writer,
		bracket:  color.New(color.Bold, color.FgWhite),
		info:     color.New(color.Bold, color.FgBlue),
		warning:  color.New(color.FgYellow),
		failure:  color.New(color.FgRed),
		success:  color.New(color.FgGreen),
		emphasis: color.New(color.Bold, color.FgYellow),
	}
	if !isTerminal(writer) {
		for _, palette := range []*color.Color{reporter.bracket, reporter.info, reporter.warning, reporter.failure, reporter.success, reporter.emphasis} {
			palette.DisableColor()
		}
	}
	return reporter
}

func isTerminal(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// Info prints an informational line.
func (reporter *Reporter) Info(format string, arguments ...interface{}) {
	reporter.print(reporter.info, infoSymbol, reporter.emphasis.Sprintf(format, arguments...))
}

// TokenCount prints the token count of the rendered prompt.
func (reporter *Reporter) TokenCount(count int) {
	reporter.print(reporter.info, infoSymbol, "Token count: "+reporter.emphasis.Sprint(count))
}

// Warning prints a yellow warning line.
func (reporter *Reporter) Warning(format string, arguments ...interface{}) {
	reporter.print(reporter.emphasis, warningSymbol, reporter.warning.Sprintf(format, arguments...))
}

// Error prints a red failure line.
func (reporter *Reporter) Error(format string, arguments ...interface{}) {
	reporter.print(reporter.failure, warningSymbol, reporter.failure.Sprintf(format, arguments...))
}

// Success prints a green confirmation line.
func (reporter *Reporter) Success(format string, arguments ...interface{}) {
	reporter.print(reporter.success, successSymbol, reporter.success.Sprintf(format, arguments...))
}

func (reporter *Reporter) print(symbolColor *color.Color, symbol string, message string) {
	fmt.Fprintf(reporter.writer, statusFormat, reporter.bracket.Sprint(openBracket), symbolColor.Sprint(symbol), reporter.bracket.Sprint(closeBracket), message)
}

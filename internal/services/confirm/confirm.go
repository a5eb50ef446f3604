// Package confirm asks the user blocking yes/no questions on the terminal.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const (
	sensitiveWarningHeader = "[!] Warning: Sensitive files detected:"
	sensitiveMatchFormat   = "  - %s\n"
	sensitiveWarningFooter = "These files may contain secrets or credentials."
	continuePrompt         = "Continue anyway? [y/N] "

	answerYes     = "y"
	answerYesLong = "yes"
	emptyLine     = ""
	lineDelimiter = '\n'
)

// Confirmer decides whether to proceed once sensitive files have been found.
type Confirmer interface {
	Confirm(matches []string) bool
}

// Prompter asks on writer and reads the answer from reader.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewPrompter creates a Prompter over the given streams.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(reader), writer: writer}
}

// Confirm lists the matches and asks whether to continue. It approves an empty
// list without asking. Only "y" or "yes" approve; EOF and read errors decline.
func (prompter *Prompter) Confirm(matches []string) bool {
	if len(matches) == 0 {
		return true
	}
	warning := color.New(color.FgYellow, color.Bold)
	warning.Fprintln(prompter.writer, sensitiveWarningHeader)
	for _, match := range matches {
		fmt.Fprintf(prompter.writer, sensitiveMatchFormat, match)
	}
	fmt.Fprintln(prompter.writer)
	warning.Fprintln(prompter.writer, sensitiveWarningFooter)
	return prompter.Ask(continuePrompt)
}

// Ask prints question and reports whether the answer was yes.
func (prompter *Prompter) Ask(question string) bool {
	fmt.Fprint(prompter.writer, question)
	answer, readError := prompter.reader.ReadString(lineDelimiter)
	if readError != nil && answer == emptyLine {
		return false
	}
	return IsAffirmative(answer)
}

// IsAffirmative reports whether answer is "y" or "yes", ignoring case and surrounding space.
func IsAffirmative(answer string) bool {
	normalizedAnswer := strings.ToLower(strings.TrimSpace(answer))
	return normalizedAnswer == answerYes || normalizedAnswer == answerYesLong
}

// Always answers every question with a fixed value.
type Always bool

// Confirm returns the fixed answer.
func (answer Always) Confirm([]string) bool {
	return bool(answer)
}

// Ask returns the fixed answer.
func (answer Always) Ask(string) bool {
	return bool(answer)
}

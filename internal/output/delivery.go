package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/temirov/codeprompt/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "
	yamlIndent   = 2

	// errorOutputDirectoryFormat is used when the output file's directory is unusable.
	errorOutputDirectoryFormat = "output directory %s: %w"
	// errorWriteOutputFormat is used when the prompt cannot be written to the output file.
	errorWriteOutputFormat = "writing output file %s: %w"
	// errorEncodeSummaryFormat is used when the summary cannot be serialized.
	errorEncodeSummaryFormat = "encoding %s summary: %w"
	// errorUnsupportedFormat is used for an unknown summary format.
	errorUnsupportedFormat = "unsupported summary format %q"
)

// WriteFile writes the rendered prompt to path. The parent directory must already exist.
func WriteFile(path string, content string) error {
	parentDirectory := filepath.Dir(path)
	directoryInfo, statError := os.Stat(parentDirectory)
	if statError != nil {
		return fmt.Errorf(errorOutputDirectoryFormat, parentDirectory, statError)
	}
	if !directoryInfo.IsDir() {
		return fmt.Errorf(errorOutputDirectoryFormat, parentDirectory, os.ErrInvalid)
	}

	file, createError := os.Create(path)
	if createError != nil {
		return fmt.Errorf(errorWriteOutputFormat, path, createError)
	}
	writer := bufio.NewWriter(file)
	if _, writeError := writer.WriteString(content); writeError != nil {
		file.Close()
		return fmt.Errorf(errorWriteOutputFormat, path, writeError)
	}
	if flushError := writer.Flush(); flushError != nil {
		file.Close()
		return fmt.Errorf(errorWriteOutputFormat, path, flushError)
	}
	if closeError := file.Close(); closeError != nil {
		return fmt.Errorf(errorWriteOutputFormat, path, closeError)
	}
	return nil
}

// WriteSummary writes summary to writer as indented JSON or YAML.
func WriteSummary(writer io.Writer, summary types.PromptSummary, format string) error {
	if summary.Files == nil {
		summary.Files = []string{}
	}
	switch format {
	case types.FormatJSON:
		encoded, encodeError := json.MarshalIndent(summary, indentPrefix, indentSpacer)
		if encodeError != nil {
			return fmt.Errorf(errorEncodeSummaryFormat, format, encodeError)
		}
		_, writeError := fmt.Fprintln(writer, string(encoded))
		return writeError
	case types.FormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndent)
		if encodeError := encoder.Encode(summary); encodeError != nil {
			return fmt.Errorf(errorEncodeSummaryFormat, format, encodeError)
		}
		return encoder.Close()
	default:
		return fmt.Errorf(errorUnsupportedFormat, format)
	}
}

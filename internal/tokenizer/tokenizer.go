// Package tokenizer counts the tokens a rendered prompt will cost.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	// Encoding is a short encoding name (cl100k, o200k, p50k, r50k), a full
	// tiktoken encoding name, or an OpenAI model name.
	Encoding string
	// TokenizerFile points to a Hugging Face tokenizer.json and takes precedence over Encoding.
	TokenizerFile string
}

const (
	// DefaultEncoding is used when no encoding is configured.
	DefaultEncoding = "cl100k"

	encodingSuffix = "_base"

	errorInitializeEncodingFormat = "initialize %s tokenizer: %w"
	errorUnknownEncodingFormat    = "%w: %s"
)

// ErrUnknownEncoding reports an encoding that is neither a known encoding nor a model name.
var ErrUnknownEncoding = errors.New("unknown tokenizer encoding")

var shortEncodingNames = map[string]string{
	"cl100k":    tiktoken.MODEL_CL100K_BASE,
	"o200k":     tiktoken.MODEL_O200K_BASE,
	"p50k":      tiktoken.MODEL_P50K_BASE,
	"p50k_edit": tiktoken.MODEL_P50K_EDIT,
	"r50k":      tiktoken.MODEL_R50K_BASE,
	"gpt2":      tiktoken.MODEL_R50K_BASE,
}

// NewCounter returns a Counter for the configured encoding or tokenizer file.
func NewCounter(cfg Config) (Counter, error) {
	if tokenizerFile := strings.TrimSpace(cfg.TokenizerFile); tokenizerFile != "" {
		return newHuggingFaceCounter(tokenizerFile)
	}

	encodingName := strings.ToLower(strings.TrimSpace(cfg.Encoding))
	if encodingName == "" {
		encodingName = DefaultEncoding
	}

	if canonicalName, known := shortEncodingNames[encodingName]; known {
		return newEncodingCounter(canonicalName)
	}
	if strings.HasSuffix(encodingName, encodingSuffix) {
		return newEncodingCounter(encodingName)
	}
	if isOpenAIModel(encodingName) {
		encoding, err := tiktoken.EncodingForModel(encodingName)
		if err != nil {
			return nil, fmt.Errorf(errorInitializeEncodingFormat, encodingName, err)
		}
		return openAICounter{encoding: encoding, name: encodingName}, nil
	}
	return nil, fmt.Errorf(errorUnknownEncodingFormat, ErrUnknownEncoding, cfg.Encoding)
}

func newEncodingCounter(encodingName string) (Counter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf(errorInitializeEncodingFormat, encodingName, err)
	}
	return openAICounter{encoding: encoding, name: encodingName}, nil
}

func isOpenAIModel(model string) bool {
	prefixes := []string{
		"gpt-",
		"o1",
		"o3",
		"o4",
		"text-embedding",
		"davinci",
		"curie",
		"babbage",
		"ada",
		"code-",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

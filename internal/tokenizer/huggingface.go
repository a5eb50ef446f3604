package tokenizer

import (
	"errors"
	"fmt"
	"path/filepath"

	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

const (
	errorLoadTokenizerFileFormat = "load tokenizer file %s: %w"
	errorEncodeFormat            = "encode with %s: %w"
)

// huggingFaceCounter counts tokens with a tokenizer.json model definition.
type huggingFaceCounter struct {
	tokenizer *hf.Tokenizer
	name      string
}

func newHuggingFaceCounter(tokenizerFile string) (Counter, error) {
	loadedTokenizer, err := pretrained.FromFile(tokenizerFile)
	if err != nil {
		return nil, fmt.Errorf(errorLoadTokenizerFileFormat, tokenizerFile, err)
	}
	return huggingFaceCounter{tokenizer: loadedTokenizer, name: filepath.Base(tokenizerFile)}, nil
}

func (counter huggingFaceCounter) Name() string {
	return counter.name
}

func (counter huggingFaceCounter) CountString(input string) (int, error) {
	if counter.tokenizer == nil {
		return 0, errors.New("nil huggingface tokenizer")
	}
	encoding, err := counter.tokenizer.EncodeSingle(input)
	if err != nil {
		return 0, fmt.Errorf(errorEncodeFormat, counter.name, err)
	}
	return len(encoding.Ids), nil
}

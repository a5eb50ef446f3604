// Package clipboard provides access to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

const errorCopyFormat = "copying prompt to clipboard: %w"

// ErrUnsupported reports a system without a usable clipboard utility.
var ErrUnsupported = errors.New("clipboard is not supported on this system")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf(errorCopyFormat, ErrUnsupported)
	}
	if copyError := clipboard.WriteAll(text); copyError != nil {
		return fmt.Errorf(errorCopyFormat, copyError)
	}
	return nil
}

var _ Copier = (*Service)(nil)

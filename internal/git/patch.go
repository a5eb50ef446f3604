package git

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	linediff "github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/temirov/codeprompt/internal/utils"
)

// patch adapts computed file changes to the go-git unified encoder.
type patch struct {
	filePatches []diff.FilePatch
}

func (changes *patch) FilePatches() []diff.FilePatch { return changes.filePatches }

func (changes *patch) Message() string { return "" }

type filePatch struct {
	from   diff.File
	to     diff.File
	binary bool
	chunks []diff.Chunk
}

func newFilePatch(from, to *trackedFile, fromContent, toContent []byte) *filePatch {
	result := &filePatch{}
	if from != nil {
		result.from = *from
	}
	if to != nil {
		result.to = *to
	}
	if utils.IsBinary(fromContent) || utils.IsBinary(toContent) {
		result.binary = true
		return result
	}
	for _, lineChange := range linediff.Do(string(fromContent), string(toContent)) {
		result.chunks = append(result.chunks, chunk{content: lineChange.Text, operation: chunkOperation(lineChange.Type)})
	}
	return result
}

func (change *filePatch) IsBinary() bool { return change.binary }

func (change *filePatch) Files() (diff.File, diff.File) { return change.from, change.to }

func (change *filePatch) Chunks() []diff.Chunk { return change.chunks }

func (file trackedFile) Hash() plumbing.Hash { return file.hash }

func (file trackedFile) Mode() filemode.FileMode { return file.mode }

func (file trackedFile) Path() string { return file.path }

type chunk struct {
	content   string
	operation diff.Operation
}

func (lineChunk chunk) Content() string { return lineChunk.content }

func (lineChunk chunk) Type() diff.Operation { return lineChunk.operation }

func chunkOperation(operation diffmatchpatch.Operation) diff.Operation {
	switch operation {
	case diffmatchpatch.DiffInsert:
		return diff.Add
	case diffmatchpatch.DiffDelete:
		return diff.Delete
	default:
		return diff.Equal
	}
}

package extractors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vish4lsharma/extractor/internal/core"
	"github.com/vish4lsharma/extractor/internal/models"
)

// checkSource reports a missing file as ErrNotFound and anything else that
// prevents reading it as an ExtractionError.
func checkSource(kind models.ExtractorKind, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.NotFoundf("source file %s", path)
	}
	if err != nil {
		return core.NewExtractionError(kind, "stat", err)
	}
	if info.IsDir() {
		return core.NewExtractionError(kind, "stat", fmt.Errorf("%s is a directory", path))
	}
	return nil
}

// recoverPanic converts a panic inside a third-party parser into an error.
func recoverPanic(kind models.ExtractorKind, op string, err *error) {
	if r := recover(); r != nil {
		*err = core.NewExtractionError(kind, op, fmt.Errorf("panic: %v", r))
	}
}

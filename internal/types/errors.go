package types

import (
	"errors"
	"fmt"
)

var (
	ErrParse           = errors.New("unreadable pdf")
	ErrEmptyIndex      = errors.New("retrieval index has not been built")
	ErrAuth            = errors.New("invalid or missing api credential")
	ErrTransient       = errors.New("transient provider error")
	ErrContent         = errors.New("provider rejected the content")
	ErrNotReady        = errors.New("please upload and process files first")
	ErrNoUploads       = errors.New("no files uploaded")
	ErrNoText          = errors.New("no text could be extracted from the uploaded files")
	ErrUnsupportedFile = errors.New("only pdf files are supported")
)

// FileError records the failure of a single upload within a batch.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

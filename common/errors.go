package common

import "errors"

// Error kinds surfaced by the engine. Callers wrap them with fmt.Errorf("%w")
// and match with errors.Is.
var (
	ErrIO          = errors.New("i/o error")
	ErrNoSpace     = errors.New("no space left on volume")
	ErrNotFound    = errors.New("no such file or directory")
	ErrNotDir      = errors.New("not a directory")
	ErrIsDir       = errors.New("is a directory")
	ErrInvalid     = errors.New("invalid argument")
	ErrExists      = errors.New("file exists")
	ErrNotEmpty    = errors.New("directory not empty")
	ErrFileTooBig  = errors.New("file too large")
	ErrNameTooLong = errors.New("file name too long")
)

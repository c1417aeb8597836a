package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMissingVoiceID = errors.New("missing_voice_id")
	ErrMissingFile    = errors.New("missing_file")
	ErrNotPDF         = errors.New("not_pdf")
)

// StoredFile is the result of a successful Put: the public URL and the
// slugified name under which the object now lives.
type StoredFile struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
}

// Store writes and removes voice attachments. Filenames are slugified
// by the backend, so storing the same name twice overwrites, and Delete
// of an absent object succeeds.
type Store interface {
	Put(ctx context.Context, voiceID, filename string, r io.Reader) (StoredFile, error)
	Delete(ctx context.Context, voiceID, fileName string) error
}

// StorageFault marks backend I/O failures, as opposed to the
// validation sentinels above.
type StorageFault struct {
	Op  string
	Err error
}

func (e *StorageFault) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageFault) Unwrap() error { return e.Err }

func Fault(op string, err error) error {
	return &StorageFault{Op: op, Err: err}
}

// IsFault reports whether err is a backend failure rather than a
// validation error.
func IsFault(err error) bool {
	var f *StorageFault
	return errors.As(err, &f)
}

package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/operalab/commesse/internal/storage/domain"
	"github.com/operalab/commesse/pkg/slugify"
	"go.uber.org/zap"
)

// Store keeps attachments on the local filesystem under
// <root>/voices/<voiceID>/<slug>. Writes stage through <root>/tmp and
// land with a rename, so a reader never observes a partial file on the
// same filesystem.
type Store struct {
	root      string
	publicURL string
	log       *zap.Logger
}

func New(root, publicURL string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "tmp"), 0o755); err != nil {
		return nil, domain.Fault("init", err)
	}
	return &Store{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log.Named("storage.local"),
	}, nil
}

// Root returns the directory attachments are stored under.
func (s *Store) Root() string { return s.root }

func (s *Store) Put(ctx context.Context, voiceID, filename string, r io.Reader) (domain.StoredFile, error) {
	if strings.TrimSpace(voiceID) == "" {
		return domain.StoredFile{}, domain.ErrMissingVoiceID
	}
	name := slugify.Filename(filename)
	if name == "" {
		return domain.StoredFile{}, domain.ErrMissingFile
	}

	staging := filepath.Join(s.root, "tmp", uuid.NewString())
	if err := s.stage(staging, r); err != nil {
		return domain.StoredFile{}, err
	}

	dir := filepath.Join(s.root, "voices", voiceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		os.Remove(staging)
		return domain.StoredFile{}, domain.Fault("mkdir", err)
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(staging, dest); err != nil {
		// staging and destination can sit on different filesystems;
		// fall back to a copy, which is not atomic
		if cerr := copyFile(staging, dest); cerr != nil {
			os.Remove(staging)
			return domain.StoredFile{}, domain.Fault("move", cerr)
		}
		os.Remove(staging)
		s.log.Warn("rename failed, copied instead",
			zap.String("dest", dest),
			zap.Error(err),
		)
	}

	return domain.StoredFile{
		FileURL:  s.publicURL + "/voices/" + url.PathEscape(voiceID) + "/" + url.PathEscape(name),
		FileName: name,
	}, nil
}

// Delete removes the object; a missing object is success.
func (s *Store) Delete(ctx context.Context, voiceID, fileName string) error {
	if strings.TrimSpace(voiceID) == "" {
		return domain.ErrMissingVoiceID
	}
	name := slugify.Filename(fileName)
	if name == "" {
		return domain.ErrMissingFile
	}

	err := os.Remove(filepath.Join(s.root, "voices", voiceID, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.Fault("delete", err)
	}
	return nil
}

func (s *Store) stage(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return domain.Fault("stage", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return domain.Fault("stage", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return domain.Fault("stage", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

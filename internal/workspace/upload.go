// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workspace

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// UploadKind selects where an uploaded file is stored.
type UploadKind string

const (
	UploadImage    UploadKind = "image"
	UploadVideo    UploadKind = "video"
	UploadDocument UploadKind = "document"
)

// ParseUploadKind validates a user-supplied kind.
func ParseUploadKind(s string) (UploadKind, error) {
	switch k := UploadKind(strings.ToLower(strings.TrimSpace(s))); k {
	case UploadImage, UploadVideo, UploadDocument:
		return k, nil
	}
	return "", fmt.Errorf("%w: kind must be image, video or document", ErrInvalidUpload)
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedVideoTypes = map[string]bool{
	"video/mp4":                true,
	"video/webm":               true,
	"video/quicktime":          true,
	"video/x-msvideo":          true,
	"application/octet-stream": true,
}

// Upload describes a file to store in a team directory.
type Upload struct {
	Kind UploadKind

	// Filename is the client-supplied name; it is sanitized before use.
	Filename string

	// ContentType is the declared media type. Empty skips the check.
	ContentType string

	Body io.Reader
}

// Stored reports where an upload ended up.
type Stored struct {
	// Path is relative to the team directory, with forward slashes.
	Path string `json:"path" yaml:"path"`

	// Folder is the new document folder for document uploads.
	Folder string `json:"folder,omitempty" yaml:"folder,omitempty"`

	Size int64 `json:"size" yaml:"size"`
}

// SaveUpload stores up in team's photos/, videos/ or, for documents, a new
// folder under documents/. Names get a short random suffix so uploads never
// overwrite each other. isDocument decides which document names are accepted.
func (w *Workspace) SaveUpload(team string, up Upload, isDocument func(string) bool) (Stored, error) {
	dir, err := w.ExistingTeamDir(team)
	if err != nil {
		return Stored{}, err
	}

	name := SecureFilename(up.Filename)
	if name == "" {
		name = "file"
	}
	base, ext := splitExt(name)
	id := uuid.NewString()[:8]

	var relDir, folder string
	switch up.Kind {
	case UploadImage:
		if err := checkContentType(up.ContentType, allowedImageTypes); err != nil {
			return Stored{}, fmt.Errorf("%w: invalid image type %s", ErrInvalidUpload, up.ContentType)
		}
		if ext == "" {
			ext = ".jpg"
		}
		relDir = PhotosDir
	case UploadVideo:
		if err := checkContentType(up.ContentType, allowedVideoTypes); err != nil {
			return Stored{}, fmt.Errorf("%w: invalid video type %s", ErrInvalidUpload, up.ContentType)
		}
		if ext == "" {
			ext = ".mp4"
		}
		relDir = VideosDir
	case UploadDocument:
		if !isDocument(name) {
			return Stored{}, fmt.Errorf("%w: %s is not a PDF, Word, Excel or PowerPoint document", ErrInvalidUpload, up.Filename)
		}
		folder = path.Join(DocumentsDir, base+"_"+id)
		relDir = folder
	default:
		return Stored{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidUpload, up.Kind)
	}

	fileName := base + "_" + id + ext
	if up.Kind == UploadDocument {
		fileName = base + ext
	}
	rel := path.Join(relDir, fileName)

	destDir := filepath.Join(dir, filepath.FromSlash(relDir))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Stored{}, fmt.Errorf("creating %s: %w", relDir, err)
	}
	n, err := copyAtomic(filepath.Join(destDir, fileName), up.Body)
	if err != nil {
		if folder != "" {
			os.RemoveAll(destDir)
		}
		return Stored{}, fmt.Errorf("saving %s: %w", rel, err)
	}

	w.log.Info("stored upload", "team", team, "kind", up.Kind, "path", rel, "bytes", n)
	return Stored{Path: rel, Folder: folder, Size: n}, nil
}

func checkContentType(ct string, allowed map[string]bool) error {
	if ct == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return err
	}
	if !allowed[mt] {
		return ErrInvalidUpload
	}
	return nil
}

// SecureFilename reduces name to a portable ASCII file name: accents are
// folded, path separators and other symbols dropped, and whitespace runs
// joined with underscores. Leading dots are removed.
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r > unicode.MaxASCII:
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Trim(strings.Join(strings.Fields(b.String()), "_"), "._")
}

func splitExt(name string) (base, ext string) {
	ext = filepath.Ext(name)
	base = strings.TrimSuffix(name, ext)
	if base == "" {
		base, ext = strings.TrimPrefix(ext, "."), ""
	}
	return base, strings.ToLower(ext)
}

// copyAtomic streams r into path through a temp file and rename.
func copyAtomic(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*.tmp")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return n, copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return n, closeErr
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return n, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return n, err
	}
	return n, nil
}

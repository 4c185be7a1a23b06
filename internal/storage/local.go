package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"noteforge-server/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffLen is how much of an upload is buffered for type detection.
const sniffLen = 3072

var AllowedMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/svg+xml",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
	"text/csv",
	"application/json",
	"application/zip",
}

var (
	safeName      = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	safeExtension = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

// Local stores uploads on disk as <root>/<userID>/<random><ext> and serves
// them under <urlPrefix>/<userID>/<filename>.
type Local struct {
	root        string
	urlPrefix   string
	maxFileSize int64
}

func NewLocal(root, urlPrefix string, maxFileSize int64) *Local {
	return &Local{
		root:        root,
		urlPrefix:   strings.TrimRight(urlPrefix, "/"),
		maxFileSize: maxFileSize,
	}
}

func (s *Local) Save(userID string, upload *domain.Upload) (*domain.StoredFile, error) {
	if !validName(userID) {
		return nil, fmt.Errorf("invalid user id for storage: %q", userID)
	}

	if upload.Size > s.maxFileSize {
		return nil, s.tooLarge()
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	mimeType, ok := allowedType(detected)
	if !ok {
		return nil, &domain.RejectedFileError{
			Reason: fmt.Sprintf("File type %s is not allowed", detected.String()),
		}
	}

	dir := filepath.Join(s.root, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename := strings.ReplaceAll(uuid.New().String(), "-", "") + extension(upload.OriginalName)
	fullPath := filepath.Join(dir, filename)

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), upload.Reader)
	written, err := io.Copy(f, io.LimitReader(body, s.maxFileSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if written > s.maxFileSize {
		os.Remove(fullPath)
		return nil, s.tooLarge()
	}

	return &domain.StoredFile{
		Filename: filename,
		Size:     written,
		MimeType: mimeType,
		URL:      path.Join(s.urlPrefix, userID, filename),
	}, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *Local) Remove(userID, filename string) error {
	if !validName(userID) || !validName(filename) {
		return fmt.Errorf("refusing to remove %q for user %q", filename, userID)
	}

	err := os.Remove(filepath.Join(s.root, userID, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}

// Open returns a stored file positioned at its start together with its
// sniffed content type. Names that are not a plain file inside the user's
// directory yield os.ErrNotExist.
func (s *Local) Open(userID, filename string) (*os.File, string, error) {
	if !validName(userID) || !validName(filename) {
		return nil, "", os.ErrNotExist
	}

	f, err := os.Open(filepath.Join(s.root, userID, filename))
	if err != nil {
		return nil, "", err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, "", err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, "", os.ErrNotExist
	}

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to detect content type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, "", err
	}

	contentType, ok := allowedType(detected)
	if !ok {
		contentType = "application/octet-stream"
	}

	return f, contentType, nil
}

func (s *Local) tooLarge() error {
	return &domain.RejectedFileError{
		Reason: fmt.Sprintf("File size exceeds the maximum allowed size of %gMB", float64(s.maxFileSize)/1024/1024),
	}
}

// allowedType matches the sniffed type itself, not its parents: every text
// format descends from text/plain, and HTML must not pass as plain text.
func allowedType(detected *mimetype.MIME) (string, bool) {
	for _, allowed := range AllowedMimeTypes {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return "", false
}

func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !safeExtension.MatchString(ext) {
		return ""
	}
	return ext
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && safeName.MatchString(name)
}

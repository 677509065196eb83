// Package media validates uploads before anything is stored.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// ErrUnsupportedMediaType rejects anything that is not an image or a video.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

const octetStream = "application/octet-stream"

type Info struct {
	MimeType string
	Type     model.ContentType
	Size     int64
}

// Classify maps a MIME type to a content type. Only image/* and video/* are
// accepted.
func Classify(mimeType string) (model.ContentType, error) {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case strings.HasPrefix(base, "video/"):
		return model.ContentVideo, nil
	case strings.HasPrefix(base, "image/"):
		return model.ContentImage, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, base)
}

// Detect sniffs r. The declared type is only consulted when the content is
// not recognized.
func Detect(r io.Reader, declared string) (Info, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return Info{}, fmt.Errorf("sniff upload: %w", err)
	}

	detected := mt.String()
	if mt.Is(octetStream) && declared != "" {
		detected = declared
	}

	ct, err := Classify(detected)
	if err != nil {
		return Info{}, err
	}
	base, _, perr := mime.ParseMediaType(detected)
	if perr != nil {
		base = detected
	}
	return Info{MimeType: base, Type: ct}, nil
}

// Inspect validates an uploaded multipart file.
func Inspect(fh *multipart.FileHeader) (Info, error) {
	f, err := fh.Open()
	if err != nil {
		return Info{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	info, err := Detect(f, fh.Header.Get("Content-Type"))
	if err != nil {
		return Info{}, err
	}
	info.Size = fh.Size
	return info, nil
}

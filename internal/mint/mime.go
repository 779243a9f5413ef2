package mint

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/nftennis/nftennis-backend/pkg/enums"
)

// sniffLen matches the mimetype package's default read limit.
const sniffLen = 3072

var mediaTypeByMime = map[string]enums.MediaType{
	"image/png":       enums.MediaTypeImage,
	"image/jpeg":      enums.MediaTypeImage,
	"image/webp":      enums.MediaTypeImage,
	"image/gif":       enums.MediaTypeImage,
	"video/mp4":       enums.MediaTypeVideo,
	"video/webm":      enums.MediaTypeVideo,
	"video/quicktime": enums.MediaTypeVideo,
}

var errUnsupportedMedia = errors.New("unsupported media type")

// sniff detects the content type from the leading bytes and returns a reader
// that still yields the whole stream.
func sniff(r io.Reader) (string, enums.MediaType, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", 0, nil, err
	}
	head = head[:n]
	if n == 0 {
		return "", 0, nil, errUnsupportedMedia
	}

	detected := mimetype.Detect(head).String()
	base := strings.TrimSpace(strings.SplitN(detected, ";", 2)[0])
	media, ok := mediaTypeByMime[base]
	if !ok {
		return base, 0, nil, errUnsupportedMedia
	}
	return base, media, io.MultiReader(bytes.NewReader(head), r), nil
}

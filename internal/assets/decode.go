package assets

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"
)

// Texture MIME types.
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeWebP = "image/webp"
	MimeTGA  = "image/x-tga"
)

// ErrUnknownFormat is returned for data in no supported image format.
var ErrUnknownFormat = errors.New("unknown image format")

// Decode decodes image data. hint is a file extension or MIME type and is
// only consulted when the data carries no recognizable signature, which is
// always the case for TGA.
func Decode(data []byte, hint string) (image.Image, string, error) {
	mime := Sniff(data)
	if mime == "" {
		mime = mimeFromHint(hint)
	}

	r := bytes.NewReader(data)
	var (
		img image.Image
		err error
	)
	switch mime {
	case MimePNG:
		img, err = png.Decode(r)
	case MimeJPEG:
		img, err = jpeg.Decode(r)
	case MimeWebP:
		img, err = webp.Decode(r)
	case MimeTGA:
		img, err = tga.Decode(r)
	default:
		return nil, "", ErrUnknownFormat
	}
	if err != nil {
		return nil, "", err
	}
	return img, mime, nil
}

// Sniff returns the MIME type implied by the data's signature, or "".
func Sniff(data []byte) string {
	switch {
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return MimePNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return MimeJPEG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return MimeWebP
	}
	return ""
}

func mimeFromHint(hint string) string {
	switch strings.ToLower(strings.TrimPrefix(hint, ".")) {
	case "png", MimePNG:
		return MimePNG
	case "jpg", "jpeg", MimeJPEG:
		return MimeJPEG
	case "webp", MimeWebP:
		return MimeWebP
	case "tga", MimeTGA, "image/tga":
		return MimeTGA
	}
	return ""
}

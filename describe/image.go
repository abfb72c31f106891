package describe

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// ImageInput is the union of image forms a describe call accepts. Build one
// with FromPath, FromBytes or FromImage; the three converge on the same
// base64 wire payload.
type ImageInput interface {
	payload() (string, error)
}

// FromPath wraps a filesystem path. The file is read lazily, at call time.
func FromPath(path string) ImageInput { return pathImage(path) }

// FromBytes wraps already-encoded image bytes. The bytes are trusted as-is
// and never decoded.
func FromBytes(data []byte) ImageInput { return bytesImage(data) }

// FromImage wraps a decoded in-memory image. It is re-encoded as PNG for
// transport; pixel data is not resized or otherwise altered.
func FromImage(img image.Image) ImageInput { return decodedImage{img: img} }

type pathImage string

func (p pathImage) payload() (string, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageRead, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

type bytesImage []byte

func (b bytesImage) payload() (string, error) {
	return base64.StdEncoding.EncodeToString(b), nil
}

type decodedImage struct {
	img image.Image
}

func (d decodedImage) payload() (string, error) {
	if d.img == nil {
		return "", fmt.Errorf("%w: nil image", ErrImageDecode)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, d.img); err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeImage decodes encoded image bytes, reporting the detected format
// ("png", "jpeg", ...). Corrupt or unrecognized data fails with
// ErrImageDecode. PNG, JPEG, GIF and WebP decoders are registered.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, format, nil
}

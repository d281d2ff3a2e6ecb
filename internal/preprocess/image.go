// internal/preprocess/image.go

// Package preprocess turns uploaded images into per-member input tensors,
// runs the ensemble members and stacks their outputs into the feature
// vector the meta-classifier consumes.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/SyedDaiam9101/leaf-classifier/internal/inference"
)

// ImageDecodeError is returned when an upload cannot be decoded as an image.
type ImageDecodeError struct {
	Err error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("invalid image format (supported: JPEG, PNG, GIF): %v", e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// Decode decodes raw upload bytes.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &ImageDecodeError{Err: fmt.Errorf("empty image")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &ImageDecodeError{Err: err}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", &ImageDecodeError{Err: fmt.Errorf("image has no pixels")}
	}
	return img, format, nil
}

// Tensor is a single image laid out as NHWC float32 data.
type Tensor struct {
	Data []float32
	// Shape is (1, height, width, channels).
	Shape [4]int
}

// ToTensor resizes img to width x height with bicubic interpolation and
// scales RGB intensities to [0,1]. Alpha is discarded.
func ToTensor(img image.Image, width, height int) Tensor {
	resized := resize.Resize(uint(width), uint(height), img, resize.Bicubic)

	bounds := resized.Bounds()
	data := make([]float32, height*width*inference.Channels)
	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+height; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+width; x++ {
			r, g, b, a := resized.At(x, y).RGBA()
			if a != 0 && a != 0xffff {
				// undo alpha premultiplication so colour survives dropping alpha
				r = r * 0xffff / a
				g = g * 0xffff / a
				b = b * 0xffff / a
				r, g, b = min(r, 0xffff), min(g, 0xffff), min(b, 0xffff)
			}
			data[i] = float32(r>>8) / 255.0
			data[i+1] = float32(g>>8) / 255.0
			data[i+2] = float32(b>>8) / 255.0
			i += inference.Channels
		}
	}

	return Tensor{
		Data:  data,
		Shape: [4]int{1, height, width, inference.Channels},
	}
}

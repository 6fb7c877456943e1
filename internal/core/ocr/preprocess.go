package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned for zero-length payloads.
var ErrEmptyImage = errors.New("empty image payload")

const (
	visionMaxWidth  = 1200
	visionMaxHeight = 800
	visionContrast  = 25
	visionQuality   = 85
	denoiseSigma    = 0.6
)

// Decode reads png, jpeg or webp bytes and applies EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// PrepareForRecognition produces a black-and-white PNG suited to tesseract:
// grayscale, a light blur to suppress sensor noise, then an Otsu threshold.
func PrepareForRecognition(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	gray := imaging.Grayscale(img)
	gray = imaging.Blur(gray, denoiseSigma)
	bw := Binarize(gray)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, bw, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// PrepareForVision shrinks the image to fit 1200x800, converts it to grayscale,
// boosts contrast and re-encodes it as JPEG.
func PrepareForVision(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	out := imaging.Fit(img, visionMaxWidth, visionMaxHeight, imaging.Lanczos)
	out = imaging.Grayscale(out)
	out = imaging.AdjustContrast(out, visionContrast)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(visionQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Binarize maps every pixel to black or white using Otsu's threshold over
// the luminance histogram.
func Binarize(img image.Image) *image.Gray {
	b := img.Bounds()
	lum := image.NewGray(b)
	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			lum.SetGray(x, y, g)
			hist[g.Y]++
		}
	}

	t := otsu(hist, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if lum.GrayAt(x, y).Y > t {
				lum.SetGray(x, y, color.Gray{Y: 255})
			} else {
				lum.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return lum
}

func otsu(hist [256]int, total int) uint8 {
	if total == 0 {
		return 127
	}
	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}
	var (
		sumB, maxVar float64
		wB           int
		threshold    uint8 = 127
	)
	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * hist[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = uint8(i)
		}
	}
	return threshold
}

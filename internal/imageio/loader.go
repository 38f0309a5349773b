// Image file loading and saving
package imageio

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var supportedFormats = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".gif"}

// Loader reads and writes still images.
type Loader struct {
	logger logrus.FieldLogger
}

func NewLoader(logger logrus.FieldLogger) *Loader {
	return &Loader{logger: logger}
}

// Load decodes an image file, applies its EXIF orientation and returns it as
// an 8-bit BGR Mat.
func (l *Loader) Load(path string) (gocv.Mat, error) {
	l.logger.WithField("filepath", path).Debug("Loading image")

	if !IsSupported(path) {
		return gocv.NewMat(), fmt.Errorf("unsupported image format: %s", path)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to load image %s: %w", path, err)
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image %s: %w", path, err)
	}

	l.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
	}).Info("Image loaded successfully")
	return mat, nil
}

// Save encodes img with the format implied by the file extension.
func (l *Loader) Save(img image.Image, path string) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("cannot save empty image")
	}
	if !IsSupported(path) {
		return fmt.Errorf("unsupported image format: %s", path)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}

	l.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	}).Info("Image saved successfully")
	return nil
}

// IsSupported reports whether path has a known image extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range supportedFormats {
		if ext == f {
			return true
		}
	}
	return false
}

package source

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"interactive-image-translation/internal/canvas"
)

// FrameReader is the part of gocv.VideoCapture a Video source reads from.
type FrameReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Video grabs frames from a capture device, file or stream URL.
type Video struct {
	reader FrameReader
	size   image.Point
	frame  gocv.Mat
	logger logrus.FieldLogger
}

// OpenVideo opens device, which is a camera index such as "0" or a path/URL.
func OpenVideo(device string, size image.Point, logger logrus.FieldLogger) (*Video, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open video %q: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video %q: device not available", device)
	}
	logger.WithFields(logrus.Fields{
		"device": device,
		"width":  vc.Get(gocv.VideoCaptureFrameWidth),
		"height": vc.Get(gocv.VideoCaptureFrameHeight),
	}).Info("Video capture opened")
	return NewVideo(vc, size, logger), nil
}

// NewVideo wraps an already open reader. Frames are resized to size.
func NewVideo(reader FrameReader, size image.Point, logger logrus.FieldLogger) *Video {
	return &Video{reader: reader, size: size, frame: gocv.NewMat(), logger: logger}
}

func (v *Video) Acquire(_ *canvas.FrameBuffer, frame int) (gocv.Mat, error) {
	if ok := v.reader.Read(&v.frame); !ok || v.frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("video: no frame available at frame %d", frame)
	}
	return resizeTo(v.frame, v.size), nil
}

func (v *Video) InPlace() bool { return false }

func (v *Video) Close() error {
	v.frame.Close()
	return v.reader.Close()
}

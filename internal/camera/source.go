// Package camera adapts OpenCV video capture to the capture controller's frame contracts.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"plate_reader/internal/capture"
	"plate_reader/internal/domain"
)

var (
	recognizedColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	candidateColor  = color.RGBA{R: 255, G: 165, B: 0, A: 0}
)

// Source opens local webcams by index and network cameras by URL.
type Source struct{}

func NewSource() *Source {
	return &Source{}
}

// ParseDevice maps a selector to a gocv device: a number is a device index, anything else a file or stream URL.
func ParseDevice(selector string) (interface{}, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, errors.New("empty device selector")
	}
	if id, err := strconv.Atoi(selector); err == nil {
		if id < 0 {
			return nil, fmt.Errorf("negative device index %d", id)
		}
		return id, nil
	}
	return selector, nil
}

func (s *Source) Acquire(ctx context.Context, selector string, res domain.Resolution) (capture.FrameStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.AcquisitionError{Device: selector, Err: err}
	}
	device, err := ParseDevice(selector)
	if err != nil {
		return nil, &domain.AcquisitionError{Device: selector, Err: err}
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, &domain.AcquisitionError{Device: selector, Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &domain.AcquisitionError{Device: selector, Err: errors.New("device not available")}
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(res.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(res.Height))
	log.Printf("Camera: opened %q, requested %s, got %.0fx%.0f", selector, res,
		vc.Get(gocv.VideoCaptureFrameWidth), vc.Get(gocv.VideoCaptureFrameHeight))

	return &stream{vc: vc, device: selector}, nil
}

type stream struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	device string
	closed bool
}

func (s *stream) NextFrame() (capture.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("camera %q released", s.device)
	}

	mat := gocv.NewMat()
	if ok := s.vc.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("cannot read frame from camera %q", s.device)
	}
	return &frame{mat: mat}, nil
}

func (s *stream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	log.Printf("Camera: releasing %q", s.device)
	return s.vc.Close()
}

type frame struct {
	mat gocv.Mat
}

// Encode draws the overlay on a copy, shrinks it to MaxWidth and JPEG-encodes it.
func (f *frame) Encode(opts capture.EncodeOptions) ([]byte, error) {
	if f.mat.Empty() {
		return nil, domain.ErrNoFrame
	}

	img := f.mat.Clone()
	defer img.Close()

	for _, box := range opts.Overlay {
		drawBox(&img, box)
	}

	w, h, scaled := ScaleToMaxWidth(img.Cols(), img.Rows(), opts.MaxWidth)
	if scaled {
		small := gocv.NewMat()
		defer small.Close()
		gocv.Resize(img, &small, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
		return encodeJPEG(small, opts.Quality)
	}
	return encodeJPEG(img, opts.Quality)
}

func (f *frame) Close() error {
	return f.mat.Close()
}

func drawBox(img *gocv.Mat, box domain.OverlayBox) {
	c := candidateColor
	if box.Recognized {
		c = recognizedColor
	}
	rect := image.Rect(int(box.Box[0]), int(box.Box[1]), int(box.Box[2]), int(box.Box[3]))
	gocv.Rectangle(img, rect, c, 3)

	labelY := rect.Min.Y - 8
	if labelY < 16 {
		labelY = rect.Max.Y + 20
	}
	gocv.PutText(img, OverlayLabel(box), image.Pt(rect.Min.X, labelY), gocv.FontHersheySimplex, 0.6, c, 2)
}

func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	// the buffer is backed by C memory
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// ScaleToMaxWidth keeps the aspect ratio and never upscales. maxWidth <= 0 disables scaling.
func ScaleToMaxWidth(width, height, maxWidth int) (int, int, bool) {
	if maxWidth <= 0 || width <= maxWidth || width <= 0 {
		return width, height, false
	}
	h := height * maxWidth / width
	if h < 1 {
		h = 1
	}
	return maxWidth, h, true
}

func OverlayLabel(box domain.OverlayBox) string {
	label := "Plate"
	if !box.Recognized {
		label = "Candidate"
	}
	return fmt.Sprintf("%s %.1f%%", label, box.Confidence*100)
}

package visualizer

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// Surface is a 2D drawing target sized by its owner
type Surface interface {
	Bounds() image.Rectangle
	Fill(r image.Rectangle, c color.Color)
	// Flush presents everything drawn since the previous Flush
	Flush() error
}

// ImageSurface draws into an RGBA image and hands each finished frame to
// present.
type ImageSurface struct {
	mu      sync.Mutex
	img     *image.RGBA
	present func(frame *image.RGBA) error
}

var _ Surface = (*ImageSurface)(nil)

// NewImageSurface creates a width x height surface. present may be nil.
func NewImageSurface(width, height int, present func(frame *image.RGBA) error) *ImageSurface {
	return &ImageSurface{
		img:     image.NewRGBA(image.Rect(0, 0, width, height)),
		present: present,
	}
}

func (s *ImageSurface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

func (s *ImageSurface) Fill(r image.Rectangle, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func (s *ImageSurface) Flush() error {
	if s.present == nil {
		return nil
	}
	s.mu.Lock()
	frame := image.NewRGBA(s.img.Bounds())
	copy(frame.Pix, s.img.Pix)
	s.mu.Unlock()
	return s.present(frame)
}

// At returns the colour of one pixel of the current frame
func (s *ImageSurface) At(x, y int) color.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img.At(x, y)
}

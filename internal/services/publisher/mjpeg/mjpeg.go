package mjpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const boundary = "frame"

// Publisher keeps the latest rendered frame as JPEG and streams it to
// every connected viewer as multipart/x-mixed-replace.
type Publisher struct {
	quality   int
	keepalive time.Duration

	jpegMutex  sync.RWMutex
	latestJPEG []byte
	published  int64

	notifyMutex sync.RWMutex
	viewers     map[chan struct{}]struct{}
}

func NewPublisher(quality int) *Publisher {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &Publisher{
		quality:   quality,
		keepalive: 2 * time.Second,
		viewers:   make(map[chan struct{}]struct{}),
	}
}

// PublishImage implements render.Surface
func (p *Publisher) PublishImage(img *image.RGBA) {
	if err := p.updateLatestJPEG(img); err != nil {
		log.Warn().Err(err).Msg("Failed to publish MJPEG frame")
		return
	}
	p.notifyViewers()
}

func (p *Publisher) updateLatestJPEG(img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}

	p.jpegMutex.Lock()
	p.latestJPEG = buf.Bytes()
	p.published++
	p.jpegMutex.Unlock()
	return nil
}

// Latest returns the most recent JPEG, if any
func (p *Publisher) Latest() ([]byte, bool) {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.latestJPEG, len(p.latestJPEG) > 0
}

// Published returns how many frames were encoded
func (p *Publisher) Published() int64 {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.published
}

// Viewers returns the number of connected stream clients
func (p *Publisher) Viewers() int {
	p.notifyMutex.RLock()
	defer p.notifyMutex.RUnlock()
	return len(p.viewers)
}

func (p *Publisher) notifyViewers() {
	p.notifyMutex.RLock()
	defer p.notifyMutex.RUnlock()

	for notify := range p.viewers {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
}

func (p *Publisher) addViewer() chan struct{} {
	notify := make(chan struct{}, 1)
	p.notifyMutex.Lock()
	p.viewers[notify] = struct{}{}
	p.notifyMutex.Unlock()
	return notify
}

func (p *Publisher) removeViewer(notify chan struct{}) {
	p.notifyMutex.Lock()
	delete(p.viewers, notify)
	p.notifyMutex.Unlock()
}

func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	notify := p.addViewer()
	defer p.removeViewer(notify)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first, ok := p.Latest()
	if !ok {
		first = p.placeholder()
	}
	if len(first) > 0 {
		if !writePart(first) {
			return
		}
	}

	keepaliveTicker := time.NewTicker(p.keepalive)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
		case <-keepaliveTicker.C:
		}
		if buf, ok := p.Latest(); ok {
			if !writePart(buf) {
				return
			}
		}
	}
}

// placeholder is shown until the first frame is rendered
func (p *Publisher) placeholder() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 640, 360))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 64, G: 64, B: 64, A: 255}), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(20, 180),
	}
	d.DrawString("Waiting for camera...")

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (p *Publisher) Shutdown() {
	log.Info().Int("viewers", p.Viewers()).Msg("MJPEG Publisher shutting down")
}

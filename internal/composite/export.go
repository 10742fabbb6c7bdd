package composite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"sandquake/internal/frames"
	"sandquake/internal/simerr"
)

// EncodePNG renders img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFrames composites every cube frame over topo and writes them to dir as
// frame_000.png, frame_001.png and so on. A shape mismatch is reported once
// after all frames were written.
func (c *Compositor) WriteFrames(dir string, topo image.Image, cube *frames.Cube) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	var warning error
	paths := make([]string, 0, cube.Len())
	for i := 0; i < cube.Len(); i++ {
		img, err := c.Overlay(topo, cube, i)
		if err != nil {
			if !errors.Is(err, simerr.ErrShapeMismatch) {
				return paths, err
			}
			warning = err
		}
		data, err := EncodePNG(img)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write frame %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, warning
}

package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// RasterCache provides thread-safe caching of decoded intensity rasters to avoid
// redundant disk reads and conversions.
//
// Rasters are keyed by the exact path string passed to Load. Cached rasters are
// shared between callers and must be treated as read-only.
//
// # Memory Management
//
// A cached 16-bit raster costs two bytes per pixel. Long-running processes that
// handle many large scenes should call Evict or Clear after use.
//
// # Example Usage
//
//	cache := imaging.NewRasterCache()
//	r, err := cache.Load("/data/scene.tif")
//	if err != nil {
//	    return err
//	}
//	defer cache.Evict("/data/scene.tif")
type RasterCache struct {
	mu      sync.RWMutex
	rasters map[string]*Raster
}

// NewRasterCache creates an empty raster cache.
func NewRasterCache() *RasterCache {
	return &RasterCache{
		rasters: make(map[string]*Raster),
	}
}

// Load retrieves a raster from the cache or decodes it from disk.
//
// Supported formats are those registered with the imaging package (PNG, JPEG,
// GIF, TIFF, BMP). 16-bit grayscale files keep their full intensity range; colour
// files are reduced to 8-bit luminance.
func (c *RasterCache) Load(path string) (*Raster, error) {
	c.mu.RLock()
	if r, ok := c.rasters[path]; ok {
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	r, err := LoadRaster(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rasters[path] = r
	c.mu.Unlock()

	return r, nil
}

// Clear removes all rasters from the cache.
func (c *RasterCache) Clear() {
	c.mu.Lock()
	c.rasters = make(map[string]*Raster)
	c.mu.Unlock()
}

// Evict removes a single raster from the cache. Unknown paths are ignored.
func (c *RasterCache) Evict(path string) {
	c.mu.Lock()
	delete(c.rasters, path)
	c.mu.Unlock()
}

// Len returns the number of cached rasters.
func (c *RasterCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rasters)
}

// LoadRaster decodes an image file into an intensity raster without caching.
func LoadRaster(path string) (*Raster, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	r, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", filepath.Base(path), err)
	}
	return r, nil
}

// SaveRaster writes the raster as a 16-bit grayscale image. The format is chosen
// from the file extension.
func SaveRaster(path string, r *Raster) error {
	if r.Empty() {
		return ErrEmptyImage
	}
	if err := imaging.Save(r.ToGray16(), path); err != nil {
		return fmt.Errorf("failed to save raster: %w", err)
	}
	return nil
}

// SaveMask writes an 8-bit detection mask. The format is chosen from the file
// extension; PNG is the usual choice since it is lossless.
func SaveMask(path string, mask *image.Gray) error {
	if mask.Bounds().Empty() {
		return ErrEmptyImage
	}
	if err := imaging.Save(mask, path); err != nil {
		return fmt.Errorf("failed to save mask: %w", err)
	}
	return nil
}

// RasterInfo describes an intensity raster loaded from disk.
type RasterInfo struct {
	// Width is the raster width in pixels.
	Width int `json:"width"`

	// Height is the raster height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "gif", "tiff",
	// "bmp" or "unknown".
	Format string `json:"format"`

	// MinIntensity and MaxIntensity bound the pixel values.
	MinIntensity int `json:"min_intensity"`
	MaxIntensity int `json:"max_intensity"`

	// DataBox is the nonzero extent (with a one pixel margin) as [x1, y1, x2, y2],
	// x2/y2 exclusive.
	DataBox [4]int `json:"data_box"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadRasterInfo loads a raster through the cache and reports its metadata.
func LoadRasterInfo(cache *RasterCache, path string) (*RasterInfo, error) {
	r, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	box := BoundingBox(r)
	return &RasterInfo{
		Width:         r.Width,
		Height:        r.Height,
		Format:        formatFromExt(path),
		MinIntensity:  int(r.Min()),
		MaxIntensity:  int(r.Max()),
		DataBox:       [4]int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
		FileSizeBytes: stat.Size(),
	}, nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".tif", ".tiff":
		return "tiff"
	case ".bmp":
		return "bmp"
	}
	return "unknown"
}

// grayscale reduces a colour image to luminance. The result stores the luminance
// in each of R, G and B.
func grayscale(img image.Image) *image.NRGBA {
	return imaging.Grayscale(img)
}

// Package imaging provides the intensity-raster primitives used by the detector.
//
// The central type is Raster, a single-channel 16-bit intensity image addressed by
// offset and stride so that tiles can be cut out of a scene without copying. The
// package also provides the pixel-level building blocks of the detection pipeline:
// intensity histograms and percentile lookup, median filtering, morphological
// dilation of boolean masks, nonzero bounding boxes, and the Rayleigh-compliant
// background shift applied to every tile.
//
// # Coordinate System
//
// All pixel coordinates are 0-based and local to the raster view:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Rectangles are image.Rectangle values: Min inclusive, Max exclusive
//
// # Histograms
//
// Histogram bins are indexed by intensity. Bin 0 is the background/no-data bin and
// is never counted by the constructors, which start at intensity 1.
//
// # File Formats
//
// Loading and saving go through github.com/disintegration/imaging, so PNG, JPEG,
// GIF, TIFF and BMP are supported. 16-bit grayscale inputs keep their full range;
// colour inputs are reduced to 8-bit luminance. Detection masks are *image.Gray
// with 255 marking a target.
//
// # Rendering
//
// Overlay stretches a raster for display and blends target pixels toward a
// highlight colour, optionally drawing tile boundaries. EncodePreview scales any
// image and returns it as base64 PNG for inline transport.
//
// # Thread Safety
//
// RasterCache is safe for concurrent use. Rasters themselves may be read
// concurrently but must not be mutated while shared.
package imaging

// Package detection implements the per-tile Rayleigh-mixture CFAR test.
//
// A TileDetector runs the full pipeline on one haloed tile:
//
//  1. Build the histogram model (censor map, resampled histogram, prefix sums).
//  2. Fit a Rayleigh mixture to the censored histogram.
//  3. Build one pair of summed-area tables per mixture interval.
//  4. Test every pixel of the working rectangle with FastDetector.
//
// # Decision Rule
//
// For a pixel of intensity v the detector sums, over the mixture intervals,
//
//	w_i * exp(-v² / (2 σ_i²))
//
// where σ_i² is estimated from the clutter annulus around the pixel (window
// square minus guard square) restricted to pixels in interval i. The pixel is a
// target when the sum is below the false alarm probability. If the annulus holds
// fewer than half its nominal area of valid clutter, the window grows by the base
// radius and the test is repeated, up to MaximumExpansion-1 times.
//
// # Coordinate System
//
// Tiles, masks and working rectangles share the tile's local frame with the
// origin at the top-left pixel. Rectangles are image.Rectangle values with an
// exclusive Max.
package detection

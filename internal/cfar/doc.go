// Package cfar exposes the Rayleigh-mixture summed-area-table CFAR detector
// (RmSAT-CFAR) behind the detector-family contract.
//
// A Detector turns an intensity raster and a false alarm probability into a
// binary target mask of the same size (255 = target, 0 = clutter). Detector
// settings are passed as named Parameters so that several detector variants can
// be driven by one dispatcher.
//
// # Pipeline
//
// RmSAT.Execute:
//
//  1. Optionally crops the image to the bounding box of its nonzero pixels.
//  2. Builds the global intensity histogram with one partial histogram per row
//     block, merged under a mutex.
//  3. Splits the image into tiles with a halo band wide enough for the largest
//     expanded window.
//  4. Starts min(MaxWorkers, tiles) workers. Each worker owns one
//     detection.TileDetector, and so one private optimizer, and pulls tile
//     indices from a channel until none are left.
//  5. Each tile is shifted to a Rayleigh-compliant background, detected, and its
//     working rectangle copied into the shared result without locking.
//
// A tile without usable data produces an all-zero sub-mask and a warning; it
// never fails the run.
//
// # Parameters
//
//	guardRadius          guard square radius          (default 5)
//	clutterRadius        clutter ring width           (default 5)
//	minimumMixtureCount  lowest mixture order         (default 1)
//	maximumMixtureCount  highest mixture order        (default 5)
//
// Every key may also be given with the "RmSAT-CFAR." prefix.
package cfar

// Package imaging provides the binary image analysis primitives used by the
// render quality pipeline: magic-number format detection, perceptual
// fingerprints and per-channel pixel statistics. Everything here is pure and
// CPU-bound; callers may run it concurrently per render without coordination.
package imaging

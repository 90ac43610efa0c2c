// Package buffer provides planar multichannel sample blocks and a pool
// for reuse-friendly block management outside the real-time path.
package buffer

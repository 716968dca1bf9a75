// Package textutil sanitizes user-supplied names before they reach the
// filesystem. Output files are named after their source video, so anything a
// remote title or an uploaded filename carries must be made path-safe first.
package textutil

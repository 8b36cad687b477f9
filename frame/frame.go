/*
Package frame implements a decoder for the full screen photo frames cached in
.ithmb files.

The format is defined as 720 by 480 pixels exactly, stored interlaced as two
half-height fields. The even rows are written first, followed by the odd rows,
and each field row is made up of 4-byte words that each hold two adjacent
pixels sharing one pair of chroma samples. There is no header or compression
so the file is always 691200 bytes in size.

Any data of exactly the right size decodes without error, the format carries
no signature that could be used to detect a file from some other device.
*/
package frame

const (
	// Width is the width in pixels of a frame
	Width = 720
	// Height is the height in pixels of a frame
	Height = 480
	// Size is the number of bytes in a frame
	Size = Width * Height * bytesPerPixel

	bytesPerPixel = 2
)

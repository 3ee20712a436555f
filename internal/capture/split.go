// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import "bytes"

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// SplitJPEG is a bufio.SplitFunc that yields complete JPEG images from an
// image2pipe MJPEG byte stream. Bytes outside SOI/EOI pairs are dropped, as is
// a truncated image at EOF.
func SplitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		// Keep a trailing 0xFF: it may be the first half of the next SOI.
		if n := len(data); !atEOF && n > 0 && data[n-1] == 0xFF {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}

	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}

// Package validation checks what workers upload and what the server hands
// back to them.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrDisallowedFileType is returned when an upload is not a known video container.
var ErrDisallowedFileType = errors.New("file type not allowed")

var allowedContainers = map[string]bool{
	"video/x-matroska": true,
	"video/webm":       true,
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/avi":        true,
	"video/mp2t":       true,
	"video/mpeg":       true,
}

// sniffSize covers the EBML header with its DocType and three MPEG-TS packets.
const sniffSize = 564

const tsPacketSize = 188

// DetectContainer reads the head of r, rewinds it and reports the container
// MIME type. allowed is false for anything that is not a video container.
func DetectContainer(r io.ReadSeeker) (mime string, allowed bool, err error) {
	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}
	if n == 0 {
		return "application/octet-stream", false, nil
	}
	buf = buf[:n]

	mime = detectVideoMagic(buf)
	if mime == "" {
		mime = http.DetectContentType(buf)
	}
	return mime, allowedContainers[mime], nil
}

// VerifyVideo rejects uploads whose magic bytes are not a video container.
func VerifyVideo(r io.ReadSeeker) error {
	mime, allowed, err := DetectContainer(r)
	if err != nil {
		return fmt.Errorf("sniff upload: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrDisallowedFileType, mime)
	}
	return nil
}

func detectVideoMagic(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}

	// EBML header; the DocType element tells Matroska from WebM.
	if bytes.HasPrefix(buf, []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		head := buf[:min(len(buf), 64)]
		if bytes.Contains(head, []byte("webm")) {
			return "video/webm"
		}
		return "video/x-matroska"
	}

	// ISO BMFF: [size]["ftyp"][brand]
	if len(buf) >= 12 && bytes.Equal(buf[4:8], []byte("ftyp")) {
		if bytes.Equal(buf[8:12], []byte("qt  ")) {
			return "video/quicktime"
		}
		return "video/mp4"
	}

	if len(buf) >= 12 && bytes.Equal(buf[0:4], []byte("RIFF")) && bytes.Equal(buf[8:12], []byte("AVI ")) {
		return "video/avi"
	}

	if isTransportStream(buf) {
		return "video/mp2t"
	}

	// MPEG program stream pack header or sequence header.
	if bytes.HasPrefix(buf, []byte{0x00, 0x00, 0x01, 0xBA}) || bytes.HasPrefix(buf, []byte{0x00, 0x00, 0x01, 0xB3}) {
		return "video/mpeg"
	}

	return ""
}

// isTransportStream looks for the 0x47 sync byte at the start of every packet
// in buf. At least two packets must be present.
func isTransportStream(buf []byte) bool {
	packets := len(buf) / tsPacketSize
	if packets < 2 {
		return false
	}
	for i := range packets {
		if buf[i*tsPacketSize] != 0x47 {
			return false
		}
	}
	return true
}

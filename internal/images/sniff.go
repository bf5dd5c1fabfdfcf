package images

import "bytes"

// magic bytes for the formats we can identify
var magicTypes = []struct {
	prefix []byte
	mime   string
}{
	{[]byte{0xff, 0xd8, 0xff}, "image/jpeg"},
	{[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, "image/png"},
	{[]byte("RIFF"), "image/webp"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("BM"), "image/bmp"},
	{[]byte("II*\x00"), "image/tiff"},
	{[]byte("MM\x00*"), "image/tiff"},
}

var allowedMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// DetectMIME sniffs the payload's magic bytes, returning the detected type
// and whether it is one of the accepted upload formats. A declared
// content-type that does not match the actual bytes is caught here.
func DetectMIME(data []byte) (string, bool) {
	if len(data) < 12 {
		return "", false
	}
	for _, m := range magicTypes {
		if !bytes.HasPrefix(data, m.prefix) {
			continue
		}
		// RIFF is a container; require the WEBP fourcc
		if m.mime == "image/webp" && !bytes.Equal(data[8:12], []byte("WEBP")) {
			continue
		}
		return m.mime, allowedMIMEs[m.mime]
	}
	return "", false
}

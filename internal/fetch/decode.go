package fetch

import (
	"bufio"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/net/html/charset"
)

// decodeBody undoes the Content-Encoding of body and converts the result
// to UTF-8 according to contentType. Encodings listed in the header are
// removed in reverse order of application.
func decodeBody(body io.Reader, contentEncoding, contentType string) (io.Reader, error) {
	r := body
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		var err error
		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			r, err = gzip.NewReader(r)
		case "deflate":
			r, err = newDeflateReader(r)
		case "br":
			r = brotli.NewReader(r)
		default:
			return nil, &unsupportedEncodingError{coding: coding}
		}
		if err != nil {
			return nil, err
		}
	}
	return charset.NewReader(r, contentType)
}

type unsupportedEncodingError struct {
	coding string
}

func (e *unsupportedEncodingError) Error() string {
	return "unsupported content encoding " + e.coding
}

// newDeflateReader accepts both zlib-wrapped deflate, which is what the
// HTTP "deflate" coding means, and raw deflate streams sent by some servers.
func newDeflateReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header[0], header[1]) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

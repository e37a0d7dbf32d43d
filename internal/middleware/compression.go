package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Thumbnail bytes are already JPEG compressed; gzip only helps the JSON
// surface.
var compressibleTypes = []string{
	"application/json",
	"text/plain",
	"text/html",
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	compressing bool
	wroteHeader bool
}

func (rw *gzipResponseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true

	ct := rw.Header().Get("Content-Type")
	for _, t := range compressibleTypes {
		if strings.HasPrefix(ct, t) {
			rw.compressing = true
			rw.Header().Set("Content-Encoding", "gzip")
			rw.Header().Del("Content-Length")
			break
		}
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *gzipResponseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		if rw.Header().Get("Content-Type") == "" {
			rw.Header().Set("Content-Type", http.DetectContentType(b))
		}
		rw.WriteHeader(http.StatusOK)
	}
	if rw.compressing {
		return rw.gz.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *gzipResponseWriter) close() error {
	if rw.compressing {
		return rw.gz.Close()
	}
	return nil
}

// Compression gzips compressible responses for clients that accept it.
func Compression() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			gz := gzipWriterPool.Get().(*gzip.Writer)
			gz.Reset(w)
			defer gzipWriterPool.Put(gz)

			wrapped := &gzipResponseWriter{ResponseWriter: w, gz: gz}
			next.ServeHTTP(wrapped, r)
			if err := wrapped.close(); err != nil {
				// The connection is already committed; nothing to do.
				_ = err
			}
		})
	}
}

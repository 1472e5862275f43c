package backend

import "net/http"

// relayedHeaders are the only backend headers returned to callers.
var relayedHeaders = []string{
	"ETag",
	"Cache-Control",
	"Last-Modified",
	"Content-Type",
	"Location",
}

func relayHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(relayedHeaders))
	for _, name := range relayedHeaders {
		if v := src.Values(name); len(v) > 0 {
			dst[http.CanonicalHeaderKey(name)] = append([]string(nil), v...)
		}
	}
	return dst
}

// Relay copies the response to w.
func (r *Response) Relay(w http.ResponseWriter) error {
	for name, values := range r.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(r.StatusCode)
	if r.StatusCode == http.StatusNotModified || len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

package nparam

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"mime"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Body is the request body, pre-read.  A handler parameter of type
// Body receives it.  The request's Body is replaced so that it can
// be read again.
type Body []byte

// Decoder is the signature for decoders: take bytes and
// a pointer to something and deserialize it.
type Decoder func([]byte, interface{}) error

var defaultDecoders = map[string]Decoder{
	"application/json": json.Unmarshal,
	"application/xml":  xml.Unmarshal,
	"text/xml":         xml.Unmarshal,
	"application/yaml": yaml.Unmarshal,
	"text/yaml":        yaml.Unmarshal,
}

func readBody(r *http.Request) (Body, error) {
	if r.Body == nil {
		return Body{}, nil
	}
	// nolint:errcheck
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return Body(body), err
}

// mediaType returns the Content-Type of r without parameters, or
// fallback if there is no Content-Type.
func mediaType(r *http.Request, fallback string) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return fallback
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mt
}

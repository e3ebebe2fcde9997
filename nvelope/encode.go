package nvelope

import (
	"encoding/json"
	"encoding/xml"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Encoder writes a dispatch outcome to w.  When err is not nil, resp
// is ignored and the error is sent instead.
type Encoder func(w http.ResponseWriter, r *http.Request, log BasicLogger, resp *Response, err error)

// EncodeJSON is a JSON encoder manufactured by MakeResponseEncoder with default options.
var EncodeJSON = MakeResponseEncoder("JSON", "application/json", json.Marshal)

// EncodeXML is a XML encoder manufactured by MakeResponseEncoder with default options.
var EncodeXML = MakeResponseEncoder("XML", "application/xml", xml.Marshal)

// EncodeYAML is a YAML encoder manufactured by MakeResponseEncoder with default options.
var EncodeYAML = MakeResponseEncoder("YAML", "application/yaml", yaml.Marshal)

type encoderOptions struct {
	errorEncoder func(BasicLogger, error) []byte
	apiEnforcer  func(enc []byte, r *http.Request) error
}

type ResponseEncoderFuncArg func(*encoderOptions)

// WithErrorEncoder specifies how to encode error responses.  The default
// encoding is to simply send err.Error() as plain text.  Error encoding
// is not allowed to return error itself nor is it allowed to panic.
func WithErrorEncoder(errorEncoder func(BasicLogger, error) []byte) ResponseEncoderFuncArg {
	return func(o *encoderOptions) {
		o.errorEncoder = errorEncoder
	}
}

// WithAPIEnforcer specifies
// a function that can check if the encoded API response is valid
// for the endpoint that is generating the response.  This is where
// swagger enforcement could be added.  The default is not not verify
// API conformance.
func WithAPIEnforcer(apiEnforcer func(enc []byte, r *http.Request) error) ResponseEncoderFuncArg {
	return func(o *encoderOptions) {
		o.apiEnforcer = apiEnforcer
	}
}

// MakeResponseEncoder generates an Encoder that marshals response
// entities with marshaller and labels them with contentType.
//
// A nil *Response is sent as 204.  A Response without an entity is
// sent with its status and headers only.  A GenericEntity is
// unwrapped before marshalling.
func MakeResponseEncoder(
	name string,
	contentType string,
	marshaller func(interface{}) ([]byte, error),
	encoderFuncArgs ...ResponseEncoderFuncArg,
) Encoder {
	o := encoderOptions{
		errorEncoder: func(_ BasicLogger, err error) []byte { return []byte(err.Error()) },
		apiEnforcer:  func(_ []byte, _ *http.Request) error { return nil },
	}
	for _, fa := range encoderFuncArgs {
		fa(&o)
	}
	fail := func(w http.ResponseWriter, r *http.Request, log BasicLogger, code int, msg string, err error) {
		w.WriteHeader(code)
		_, _ = w.Write(o.errorEncoder(log, err))
		fields := map[string]interface{}{
			"error":   err.Error(),
			"method":  r.Method,
			"uri":     r.URL.String(),
			"encoder": name,
		}
		if code >= http.StatusInternalServerError {
			log.Error(msg, fields)
		} else {
			log.Debug(msg, fields)
		}
	}
	return func(w http.ResponseWriter, r *http.Request, log BasicLogger, resp *Response, err error) {
		if log == nil {
			log = NoLogger()
		}
		if err != nil {
			fail(w, r, log, GetReturnCode(err), "Request failed", err)
			return
		}
		if resp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		for k, v := range resp.Header {
			w.Header()[k] = v
		}
		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		model := unwrapEntity(resp.Entity)
		if model == nil {
			w.WriteHeader(status)
			return
		}
		enc, err := marshaller(model)
		if err != nil {
			fail(w, r, log, http.StatusInternalServerError, "Cannot marshal response", err)
			return
		}
		err = o.apiEnforcer(enc, r)
		if err != nil {
			fail(w, r, log, http.StatusInternalServerError, "Invalid API response", err)
			return
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, err = w.Write(enc)
		if err != nil {
			log.Warn("Cannot write response",
				map[string]interface{}{
					"error":  err.Error(),
					"method": r.Method,
					"uri":    r.URL.String(),
				})
		}
	}
}

package nvelope_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/muir/ndispatch/nvelope"
	"github.com/stretchr/testify/assert"
)

type encodeModel struct {
	Name  string `json:"name" xml:"name" yaml:"name"`
	Count int    `json:"count" xml:"count" yaml:"count"`
}

func encodeOnce(enc nvelope.Encoder, resp *nvelope.Response, err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/x", nil)
	enc(w, r, nvelope.NoLogger(), resp, err)
	return w
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()
	w := encodeOnce(nvelope.EncodeJSON, nvelope.OK(encodeModel{Name: "a", Count: 2}), nil)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, `{"name":"a","count":2}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestEncodeYAML(t *testing.T) {
	t.Parallel()
	w := encodeOnce(nvelope.EncodeYAML, nvelope.OK(encodeModel{Name: "a", Count: 2}), nil)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "name: a\ncount: 2\n", w.Body.String())
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
}

func TestEncodeXML(t *testing.T) {
	t.Parallel()
	w := encodeOnce(nvelope.EncodeXML, nvelope.OK(encodeModel{Name: "a", Count: 2}), nil)
	assert.Equal(t, `<encodeModel><name>a</name><count>2</count></encodeModel>`, w.Body.String())
}

func TestEncodeNoContent(t *testing.T) {
	t.Parallel()
	w := encodeOnce(nvelope.EncodeJSON, nvelope.NoContent(), nil)
	assert.Equal(t, 204, w.Code)
	assert.Empty(t, w.Body.String())

	w = encodeOnce(nvelope.EncodeJSON, nil, nil)
	assert.Equal(t, 204, w.Code, "nil response")
	assert.Empty(t, w.Body.String())
}

func TestEncodeGenericEntityAndHeaders(t *testing.T) {
	t.Parallel()
	resp := nvelope.NewResponse(http.StatusCreated, nvelope.Entity([]int{1, 2})).
		WithHeader("Location", "/things/1")
	w := encodeOnce(nvelope.EncodeJSON, resp, nil)
	assert.Equal(t, 201, w.Code)
	assert.Equal(t, `[1,2]`, w.Body.String())
	assert.Equal(t, "/things/1", w.Header().Get("Location"))
}

func TestEncodeErrors(t *testing.T) {
	t.Parallel()
	w := encodeOnce(nvelope.EncodeJSON, nvelope.OK("ignored"), nvelope.NotFound(fmt.Errorf("no such thing")))
	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "no such thing", w.Body.String())

	w = encodeOnce(nvelope.EncodeJSON, nil, fmt.Errorf("boom"))
	assert.Equal(t, 500, w.Code)
}

func TestEncodeMarshalFailure(t *testing.T) {
	t.Parallel()
	w := encodeOnce(nvelope.EncodeJSON, nvelope.OK(func() {}), nil)
	assert.Equal(t, 500, w.Code)
}

func TestEncoderOptions(t *testing.T) {
	t.Parallel()
	enc := nvelope.MakeResponseEncoder("strict", "application/json",
		func(interface{}) ([]byte, error) { return []byte(`{}`), nil },
		nvelope.WithAPIEnforcer(func(enc []byte, _ *http.Request) error {
			return fmt.Errorf("not allowed: %s", enc)
		}),
		nvelope.WithErrorEncoder(func(_ nvelope.BasicLogger, err error) []byte {
			return []byte(`{"error":"` + err.Error() + `"}`)
		}))
	w := encodeOnce(enc, nvelope.OK(1), nil)
	assert.Equal(t, 500, w.Code)
	assert.Equal(t, `{"error":"not allowed: {}"}`, w.Body.String())
}

package nparam_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/muir/ndispatch"
	"github.com/muir/ndispatch/nparam"
	"github.com/muir/ndispatch/nvelope"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestOpt func(*http.Request)

func withHeader(k, v string) requestOpt {
	return func(r *http.Request) { r.Header.Add(k, v) }
}

// captureOutput binds fn at pattern and returns a function that sends a
// request and reports "status->body".
func captureOutput(t *testing.T, pattern string, fn interface{}, opts ...nparam.ResolverOpt) func(uri string, body string, ropts ...requestOpt) string {
	inv, err := ndispatch.FuncInvocable(t.Name(), fn)
	require.NoError(t, err)
	d, err := ndispatch.NewProvider(nparam.NewResolver(opts...)).Bind(inv, nil)
	require.NoError(t, err, ndispatch.DetailedError(err))
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		resp, err := d.Dispatch(nil, r)
		nvelope.EncodeJSON(w, r, nvelope.NoLogger(), resp, err)
	})
	return func(uri string, body string, ropts ...requestOpt) string {
		var r *http.Request
		if body == "" {
			r = httptest.NewRequest("GET", uri, nil)
		} else {
			r = httptest.NewRequest("POST", uri, strings.NewReader(body))
		}
		for _, opt := range ropts {
			opt(r)
		}
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		return strconv.Itoa(w.Code) + "->" + w.Body.String()
	}
}

func TestResolveQueryScalars(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(s struct {
		Int     int      `json:",omitempty" nparam:"query,name=int"`
		Int8    int8     `json:",omitempty" nparam:"query,name=int8"`
		Uint16  uint16   `json:",omitempty" nparam:"query,name=uint16"`
		Float64 float64  `json:",omitempty" nparam:"query,name=float64"`
		String  string   `json:",omitempty" nparam:"query,name=string"`
		IntP    *int     `json:",omitempty" nparam:"query,name=intp"`
		BoolP   *bool    `json:",omitempty" nparam:"query,name=boolp"`
		IP      net.IP   `json:",omitempty" nparam:"query,name=ip"`
		Default string   `json:",omitempty" nparam:"query"`
		Nested  struct { // untagged structs are searched for tagged fields
			Inner int `json:",omitempty" nparam:"query,name=inner"`
		} `json:",omitempty"`
	}) (interface{}, error) {
		return s, nil
	})
	assert.Equal(t, `200->{"Int":135,"Nested":{}}`, do("/x?int=135", ""))
	assert.Equal(t, `200->{"Int8":-5,"Nested":{}}`, do("/x?int8=-5", ""))
	assert.Equal(t, `200->{"Uint16":127,"Nested":{}}`, do("/x?uint16=127", ""))
	assert.Equal(t, `200->{"Float64":38.7,"Nested":{}}`, do("/x?float64=38.7", ""))
	assert.Equal(t, `200->{"String":"fred","Nested":{}}`, do("/x?string=fred", ""))
	assert.Equal(t, `200->{"IntP":135,"Nested":{}}`, do("/x?intp=135", ""))
	assert.Equal(t, `200->{"BoolP":false,"Nested":{}}`, do("/x?boolp=false", ""))
	assert.Equal(t, `200->{"IP":"10.0.0.1","Nested":{}}`, do("/x?ip=10.0.0.1", ""))
	assert.Equal(t, `200->{"Default":"d","Nested":{}}`, do("/x?Default=d", ""))
	assert.Equal(t, `200->{"Nested":{"Inner":3}}`, do("/x?inner=3", ""))
}

func TestResolveQuerySlices(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(s *struct {
		Exploded []int    `json:",omitempty" nparam:"query,name=e"`
		Comma    []int    `json:",omitempty" nparam:"query,name=c,explode=false"`
		Space    []*int8  `json:",omitempty" nparam:"query,name=s,explode=false,delimiter=space"`
		Pipe     *[]int16 `json:",omitempty" nparam:"query,name=p,explode=false,delimiter=pipe"`
	}) (interface{}, error) {
		return s, nil
	})
	assert.Equal(t, `200->{"Exploded":[10,11,12]}`, do("/x?e=10&e=11&e=12", ""))
	assert.Equal(t, `200->{"Comma":[1,7]}`, do("/x?c=1,7", ""))
	assert.Equal(t, `200->{"Space":[8,22,-3]}`, do("/x?s=8%2022%20-3", ""))
	assert.Equal(t, `200->{"Pipe":[7,11,13]}`, do("/x?p=7|11|13", ""))
}

func TestResolvePathHeaderCookie(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "GET /things/{id}", func(s struct {
		ID     int      `json:"id" nparam:"path,name=id"`
		Agent  string   `json:"agent,omitempty" nparam:"header,name=X-Agent"`
		Tags   []string `json:"tags,omitempty" nparam:"header,name=X-Tags"`
		Multi  []string `json:"multi,omitempty" nparam:"header,name=X-Multi,explode=true"`
		Flavor string   `json:"flavor,omitempty" nparam:"cookie,name=flavor"`
	}) (interface{}, error) {
		return s, nil
	})
	assert.Equal(t, `200->{"id":7}`, do("/things/7", ""))
	assert.Equal(t, `200->{"id":7,"agent":"bond"}`, do("/things/7", "", withHeader("X-Agent", "bond")))
	assert.Equal(t, `200->{"id":7,"tags":["a","b"]}`, do("/things/7", "", withHeader("X-Tags", "a,b")))
	assert.Equal(t, `200->{"id":7,"multi":["a","b"]}`, do("/things/7", "",
		withHeader("X-Multi", "a"), withHeader("X-Multi", "b")))
	assert.Equal(t, `200->{"id":7,"flavor":"oatmeal"}`, do("/things/7", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "flavor", Value: "oatmeal"})
	}))
	assert.True(t, strings.HasPrefix(do("/things/seven", ""), "400->"))
}

type modelBody struct {
	Name  string `json:"name" xml:"name" yaml:"name"`
	Count int    `json:"count" xml:"count" yaml:"count"`
}

func TestResolveModel(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(s struct {
		Body modelBody `nparam:"model"`
	}) (interface{}, error) {
		return s.Body, nil
	})
	assert.Equal(t, `200->{"name":"a","count":2}`, do("/x", `{"name":"a","count":2}`))
	assert.Equal(t, `200->{"name":"a","count":2}`, do("/x", `{"name":"a","count":2}`,
		withHeader("Content-Type", "application/json; charset=utf-8")))
	assert.Equal(t, `200->{"name":"b","count":3}`, do("/x", "name: b\ncount: 3\n",
		withHeader("Content-Type", "application/yaml")))
	assert.Equal(t, `200->{"name":"c","count":4}`, do("/x", "<m><name>c</name><count>4</count></m>",
		withHeader("Content-Type", "application/xml")))
	assert.Equal(t, `200->{"name":"","count":0}`, do("/x", ""))
	assert.True(t, strings.HasPrefix(do("/x", `{"name":`), "400->"))
	assert.True(t, strings.HasPrefix(do("/x", "x", withHeader("Content-Type", "text/csv")), "400->"))
}

func TestResolveModelDefaultContentType(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(s struct {
		Body modelBody `nparam:"model"`
	}) (interface{}, error) {
		return s.Body, nil
	}, nparam.WithDefaultContentType("application/yaml"))
	assert.Equal(t, `200->{"name":"b","count":3}`, do("/x", "name: b\ncount: 3\n"))
}

func TestResolveCustomDecoder(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(s struct {
		Body []string `nparam:"model"`
	}) (interface{}, error) {
		return s.Body, nil
	}, nparam.WithDecoder("text/csv", func(b []byte, i interface{}) error {
		p, ok := i.(*[]string)
		if !ok {
			return errors.New("not a *[]string")
		}
		*p = strings.Split(string(b), ",")
		return nil
	}))
	assert.Equal(t, `200->["a","b"]`, do("/x", "a,b", withHeader("Content-Type", "text/csv")))
}

func TestResolveJSONPath(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(s struct {
		Name    string            `json:"name,omitempty" nparam:"json,name=user.name"`
		Age     *int              `json:"age,omitempty" nparam:"json,name=user.age"`
		Tags    []string          `json:"tags,omitempty" nparam:"json,name=user.tags"`
		Extra   map[string]string `json:"extra,omitempty" nparam:"json,name=user.extra"`
		Missing string            `json:"missing,omitempty" nparam:"json,name=user.nope"`
	}) (interface{}, error) {
		return s, nil
	})
	assert.Equal(t,
		`200->{"name":"ann","age":33,"tags":["a","b"],"extra":{"k":"v"}}`,
		do("/x", `{"user":{"name":"ann","age":33,"tags":["a","b"],"extra":{"k":"v"}}}`))
	assert.Equal(t, `200->{"name":"bob"}`, do("/x", `{"user":{"name":"bob","age":null}}`))
	assert.True(t, strings.HasPrefix(do("/x", `{"user":{"age":"old"}}`), "400->"))
}

func TestResolveContentOption(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(s struct {
		Filter map[string]int `json:"filter" nparam:"query,name=filter,content=application/json"`
	}) (interface{}, error) {
		return s, nil
	})
	assert.Equal(t, `200->{"filter":{"a":1}}`, do("/x?filter="+url.QueryEscape(`{"a":1}`), ""))
	assert.True(t, strings.HasPrefix(do("/x?filter=nope", ""), "400->"))
}

func TestResolveBuiltins(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(
		ctx context.Context,
		r *http.Request,
		h http.Header,
		q url.Values,
		u *url.URL,
		b nparam.Body,
	) (string, error) {
		if ctx == nil || r == nil || ctx != r.Context() {
			return "", errors.New("context")
		}
		again, err := io.ReadAll(r.Body)
		if err != nil {
			return "", err
		}
		return strings.Join([]string{h.Get("X-A"), q.Get("q"), u.Path, string(b), string(again)}, " "), nil
	})
	assert.Equal(t, `200->"a q /x body body"`, do("/x?q=q", "body", withHeader("X-A", "a")))
}

type user struct {
	Name string
}

type greeting string

func TestResolveUserProviders(t *testing.T) {
	t.Parallel()
	do := captureOutput(t, "/x", func(u user, g greeting, r *http.Request) (string, error) {
		return string(g) + " " + u.Name + " " + r.Header.Get("X-Over"), nil
	},
		nparam.Provide(func(r *http.Request) (user, error) {
			name := r.Header.Get("X-User")
			if name == "" {
				return user{}, nvelope.Unauthorized(errors.New("who are you"))
			}
			return user{Name: name}, nil
		}),
		nparam.WithValue(greeting("hello")),
		nparam.WithProvider(reflect.TypeOf(&http.Request{}), ndispatch.ValueProviderFunc(func(r *http.Request) (reflect.Value, error) {
			r2 := r.Clone(r.Context())
			r2.Header.Set("X-Over", "overridden")
			return reflect.ValueOf(r2), nil
		})),
	)
	assert.Equal(t, `200->"hello ann overridden"`, do("/x", "", withHeader("X-User", "ann")))
	assert.True(t, strings.HasPrefix(do("/x", ""), "401->"))
}

func TestResolveFreshEachRequest(t *testing.T) {
	t.Parallel()
	var counter int64
	do := captureOutput(t, "/x", func(n int64, s struct {
		Q string `nparam:"query,name=q"`
	}) (string, error) {
		return strconv.FormatInt(n, 10) + s.Q, nil
	}, nparam.Provide(func(*http.Request) (int64, error) {
		return atomic.AddInt64(&counter, 1), nil
	}))
	assert.Equal(t, `200->"1a"`, do("/x?q=a", ""))
	assert.Equal(t, `200->"2"`, do("/x", ""))
	assert.Equal(t, `200->"3b"`, do("/x?q=b", ""))
}

func TestResolveUnresolvable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		fn      interface{}
		missing []int
	}{
		{
			name:    "channel",
			fn:      func(ctx context.Context, c chan int) {},
			missing: []int{1},
		},
		{
			name:    "untagged struct",
			fn:      func(s struct{ A int }, b nparam.Body, p *struct{ B int }) {},
			missing: []int{0, 2},
		},
		{
			name: "bad tag",
			fn: func(s struct {
				A int `nparam:"bogus"`
			}) {
			},
			missing: []int{0},
		},
		{
			name: "bad option",
			fn: func(s struct {
				A int `nparam:"query,sideways=true"`
			}) {
			},
			missing: []int{0},
		},
		{
			name: "unsupported kind",
			fn: func(s struct {
				A complex64 `nparam:"query"`
			}) {
			},
			missing: []int{0},
		},
		{
			name: "unexported",
			fn: func(s struct {
				a int `nparam:"query"` //nolint:unused
			}) {
			},
			missing: []int{0},
		},
		{
			name: "unknown content",
			fn: func(s struct {
				A int `nparam:"query,content=text/csv"`
			}) {
			},
			missing: []int{0},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			inv, err := ndispatch.FuncInvocable(tc.name, tc.fn)
			require.NoError(t, err)
			d, err := ndispatch.NewProvider(nparam.NewResolver()).Bind(inv, nil)
			assert.Nil(t, d)
			var mde *ndispatch.MissingDependencyError
			require.True(t, errors.As(err, &mde), "%v", err)
			var got []int
			for _, m := range mde.Missing {
				got = append(got, m.Index)
			}
			assert.Equal(t, tc.missing, got)
		})
	}
}

func TestResolveVariadic(t *testing.T) {
	t.Parallel()
	inv, err := ndispatch.FuncInvocable("variadic", func(ctx context.Context, more ...int) {})
	require.NoError(t, err)
	assert.Nil(t, nparam.NewResolver().CreateValueProviders(inv))
	d, err := ndispatch.NewProvider(nparam.NewResolver()).Bind(inv, nil)
	assert.Nil(t, d)
	assert.True(t, errors.Is(err, ndispatch.ErrNoValueProviders))
}

func TestResolveDirect(t *testing.T) {
	t.Parallel()
	res := nparam.NewResolver(nparam.WithTag("in"))
	vp, err := res.Resolve(reflect.TypeOf(struct {
		Q string `in:"query,name=q"`
	}{}))
	require.NoError(t, err)
	v, err := vp.Provide(httptest.NewRequest("GET", "/x?q=z", nil))
	require.NoError(t, err)
	assert.Equal(t, "z", v.Field(0).String())

	_, err = res.Resolve(reflect.TypeOf(struct {
		Q string `nparam:"query,name=q"`
	}{}))
	assert.True(t, errors.Is(err, nparam.ErrUnresolvable))
}

func TestResolveLogsReasons(t *testing.T) {
	t.Parallel()
	var lines []string
	log := nvelope.LoggerFromStd(stdLoggerFunc(func(v ...interface{}) {
		var sb strings.Builder
		for _, s := range v {
			sb.WriteString(s.(string))
		}
		lines = append(lines, sb.String())
	}), true)
	inv, err := ndispatch.FuncInvocable("logged", func(c chan int) {})
	require.NoError(t, err)
	providers := nparam.NewResolver(nparam.WithLogger(log)).CreateValueProviders(inv)
	require.Len(t, providers, 1)
	assert.Nil(t, providers[0])
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "DEBUG cannot resolve parameter")
	assert.Contains(t, lines[0], "handler=logged")
	assert.Contains(t, lines[0], "index=0")
}

type stdLoggerFunc func(v ...interface{})

func (f stdLoggerFunc) Print(v ...interface{}) { f(v...) }

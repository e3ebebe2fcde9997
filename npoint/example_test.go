package npoint_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/muir/ndispatch"
	"github.com/muir/ndispatch/nparam"
	"github.com/muir/ndispatch/npoint"
	"github.com/muir/ndispatch/nvelope"
	"github.com/pkg/errors"
)

type greeter struct {
	greeting string
}

type greetRequest struct {
	Name string `nparam:"path,name=name"`
}

func (g greeter) Greet(req greetRequest) (string, error) {
	if req.Name == "nobody" {
		return "", nvelope.NotFound(errors.New("nobody is here"))
	}
	return g.greeting + ", " + req.Name, nil
}

// Channels cannot come from a request so this method is rejected.
func (g greeter) Listen(c chan string) {}

// Handlers are registered before the service starts.  Registrations
// that cannot be dispatched are rejected without stopping the rest.
func ExamplePreregisterService() {
	svc := npoint.PreregisterService("greeter",
		ndispatch.NewProvider(nparam.NewResolver()))

	_, _ = svc.RegisterEndpoint("GET /hello/{name}", greeter{greeting: "hello"}, "Greet")
	_, err := svc.RegisterEndpoint("GET /listen", greeter{}, "Listen")
	fmt.Println("listen rejected:", err != nil, len(svc.Rejected()))

	mux := http.NewServeMux()
	svc.Start(mux.HandleFunc)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	for _, path := range []string{"/hello/world", "/hello/nobody", "/listen"} {
		// nolint:noctx
		res, err := http.Get(ts.URL + path)
		if err != nil {
			fmt.Println("get error:", err)
			continue
		}
		b, _ := io.ReadAll(res.Body)
		_ = res.Body.Close()
		fmt.Println(res.StatusCode, string(b))
	}
	// Output: listen rejected: true 1
	// 200 "hello, world"
	// 404 nobody is here
	// 404 404 page not found
}

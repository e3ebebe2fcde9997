package nparam

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// sources maps each valid tag base to whether its values are
// exploded by default.
var sources = map[string]bool{
	"path":   false,
	"query":  true,
	"header": false,
	"cookie": false,
	"model":  false,
	"json":   false,
}

var delimiters = map[string]string{
	"comma": ",",
	"pipe":  "|",
	"space": " ",
}

type tags struct {
	name      string
	explode   bool
	delimiter string
	content   string
}

func (tags tags) WithoutExplode() tags {
	tags.explode = false
	return tags
}

var tagOptions = map[string]func(*tags, string) error{
	"name": func(t *tags, v string) error {
		t.name = v
		return nil
	},
	"explode": func(t *tags, v string) (err error) {
		t.explode, err = strconv.ParseBool(v)
		return err
	},
	"delimiter": func(t *tags, v string) error {
		d, ok := delimiters[v]
		if !ok {
			return errors.Errorf("Invalid delimiter value '%s' (must be 'comma', 'space', or 'pipe')", v)
		}
		t.delimiter = d
		return nil
	},
	"content": func(t *tags, v string) error {
		t.content = v
		return nil
	},
}

// parseTag splits a tag like "query,name=ids,explode=false" into its
// base ("query") and the options that follow.
func parseTag(s string) (string, tags, error) {
	base, rest, _ := strings.Cut(s, ",")
	if base == "" {
		return "", tags{}, errors.New("must specify the source of the data ('path', 'query', etc)")
	}
	explode, ok := sources[base]
	if !ok {
		return "", tags{}, errors.Errorf("'%s' is not a valid source of the data use ('model', 'path', 'query', 'header', 'cookie', or 'json')", base)
	}
	t := tags{explode: explode, delimiter: ","}
	if rest == "" {
		return base, t, nil
	}
	for _, opt := range strings.Split(rest, ",") {
		k, v, _ := strings.Cut(opt, "=")
		set, ok := tagOptions[k]
		if !ok {
			return "", t, errors.Errorf("unknown tag option '%s'", k)
		}
		if err := set(&t, v); err != nil {
			return "", t, errors.Wrap(err, k)
		}
	}
	return base, t, nil
}

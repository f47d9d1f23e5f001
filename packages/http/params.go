package http

import (
	"net/url"
	"sort"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Params is an insertion-ordered set of request fields. Values are either
// plain strings or FileParts. Setting an existing key replaces its value
// but keeps its original position.
type Params struct {
	m *linkedhashmap.Map
}

func NewParams() *Params {
	return &Params{m: linkedhashmap.New()}
}

// ParamsOf builds Params from alternating key/value pairs. A trailing key
// without a value gets the empty string.
func ParamsOf(pairs ...string) *Params {
	p := NewParams()
	for i := 0; i < len(pairs); i += 2 {
		value := ""
		if i+1 < len(pairs) {
			value = pairs[i+1]
		}
		p.Set(pairs[i], value)
	}
	return p
}

// ParamsFromMap builds Params from a map. Go maps are unordered, so keys
// are inserted in sorted order.
func ParamsFromMap(values map[string]string) *Params {
	p := NewParams()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, values[k])
	}
	return p
}

func (p *Params) Set(key, value string) *Params {
	p.m.Put(key, value)
	return p
}

func (p *Params) SetFile(key string, file FilePart) *Params {
	p.m.Put(key, file)
	return p
}

// Get returns the value stored under key: a string or a FilePart.
func (p *Params) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	return p.m.Get(key)
}

func (p *Params) Remove(key string) {
	p.m.Remove(key)
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return p.m.Size()
}

func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, p.m.Size())
	for _, k := range p.m.Keys() {
		keys = append(keys, k.(string))
	}
	return keys
}

// Each calls fn for every field in insertion order.
func (p *Params) Each(fn func(key string, value any)) {
	if p == nil {
		return
	}
	it := p.m.Iterator()
	for it.Next() {
		fn(it.Key().(string), it.Value())
	}
}

// HasFiles reports whether any field holds a FilePart.
func (p *Params) HasFiles() bool {
	found := false
	p.Each(func(_ string, value any) {
		if _, ok := value.(FilePart); ok {
			found = true
		}
	})
	return found
}

// Encode renders the fields as a query string: key=value pairs joined by
// "&" in insertion order. Values are percent-encoded, keys are written
// as given.
func (p *Params) Encode() string {
	pairs := make([]string, 0, p.Len())
	p.Each(func(key string, value any) {
		pairs = append(pairs, key+"="+url.QueryEscape(fieldString(value)))
	})
	return strings.Join(pairs, "&")
}

// EncodeForm renders the fields as an application/x-www-form-urlencoded
// body, escaping keys as well as values.
func (p *Params) EncodeForm() string {
	pairs := make([]string, 0, p.Len())
	p.Each(func(key string, value any) {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(fieldString(value)))
	})
	return strings.Join(pairs, "&")
}

// Clone returns a copy that can be modified independently.
func (p *Params) Clone() *Params {
	c := NewParams()
	p.Each(func(key string, value any) {
		c.m.Put(key, value)
	})
	return c
}

// Map returns the fields as a plain map, rendering file parts with
// FilePart.String.
func (p *Params) Map() map[string]string {
	out := make(map[string]string, p.Len())
	p.Each(func(key string, value any) {
		out[key] = fieldString(value)
	})
	return out
}

func fieldString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case FilePart:
		return v.String()
	default:
		return ""
	}
}

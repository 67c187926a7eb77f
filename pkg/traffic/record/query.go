package record

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// Query holds query parameters in first-appearance order. A parameter given
// once encodes as a string, a repeated one as an array of strings.
type Query struct {
	keys   []string
	values map[string][]string
}

// ParseQuery parses a raw query string. Unlike url.ParseQuery it keeps the
// parameter order and never fails: undecodable escapes are kept verbatim.
func ParseQuery(raw string) Query {
	q := Query{values: make(map[string][]string)}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = unescape(key)
		if key == "" {
			continue
		}
		if _, seen := q.values[key]; !seen {
			q.keys = append(q.keys, key)
		}
		q.values[key] = append(q.values[key], unescape(value))
	}
	return q
}

// MarshalJSON encodes the query as a JSON object preserving key order. An
// empty query encodes as [], the form existing consumers of the dump expect.
func (q Query) MarshalJSON() ([]byte, error) {
	if len(q.keys) == 0 {
		return []byte("[]"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range q.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')

		var v any = q.values[key]
		if vs := q.values[key]; len(vs) == 1 {
			v = vs[0]
		}
		if err := writeJSON(&buf, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

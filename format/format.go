// Package format holds the string plumbing shared by the request pipeline:
// deterministic key serialization, query encoding and header flattening.
package format

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

var absoluteURL = regexp.MustCompile(`(?i)^([a-z][a-z\d+\-.]*:)?//`)

// SortedString serializes v so that values equal up to map key order and
// slice element order produce the same string.
// Maps render as {k1:v1,k2:v2} with keys sorted, slices as [e1,e2] with the
// serialized elements sorted. A nil value renders as "" at the top level and
// as null when nested.
func SortedString(v any) string {
	if v == nil {
		return ""
	}
	return sorted(reflect.ValueOf(v))
}

func sorted(rv reflect.Value) string {
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "null"
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Invalid:
		return "null"

	case reflect.Map:
		if rv.IsNil() {
			return "null"
		}
		keys := make([]string, 0, rv.Len())
		values := make(map[string]string, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			values[k] = sorted(iter.Value())
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte(':')
			b.WriteString(values[k])
		}
		b.WriteByte('}')
		return b.String()

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "null"
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(bytesOf(rv))
		}
		elems := make([]string, rv.Len())
		for i := range elems {
			elems[i] = sorted(rv.Index(i))
		}
		sort.Strings(elems)
		return "[" + strings.Join(elems, ",") + "]"

	case reflect.Struct:
		// structs are keyed by their JSON shape so tags and omitempty apply
		raw, err := json.Marshal(rv.Interface())
		if err != nil {
			return fmt.Sprint(rv.Interface())
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return string(raw)
		}
		if generic == nil {
			return "null"
		}
		return sorted(reflect.ValueOf(generic))

	default:
		return fmt.Sprint(rv.Interface())
	}
}

func bytesOf(rv reflect.Value) []byte {
	if rv.Kind() == reflect.Slice {
		return rv.Bytes()
	}
	b := make([]byte, rv.Len())
	for i := range b {
		b[i] = byte(rv.Index(i).Uint())
	}
	return b
}

// EncodeQuery renders query as a URL query string with keys sorted.
// Slices become repeated keys, nil values are dropped, maps and structs are sent as JSON.
func EncodeQuery(query map[string]any) string {
	if len(query) == 0 {
		return ""
	}

	values := url.Values{}
	for k, v := range query {
		for _, s := range queryValues(v) {
			values.Add(k, s)
		}
	}
	return values.Encode()
}

func queryValues(v any) []string {
	if v == nil {
		return nil
	}

	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []byte:
		return []string{string(t)}
	case fmt.Stringer:
		return []string{t.String()}
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, queryValues(rv.Index(i).Interface())...)
		}
		return out
	case reflect.Map, reflect.Struct:
		raw, err := json.Marshal(rv.Interface())
		if err != nil {
			return []string{fmt.Sprint(rv.Interface())}
		}
		return []string{string(raw)}
	default:
		return []string{fmt.Sprint(rv.Interface())}
	}
}

// IsAbsoluteURL reports whether u carries a scheme or is protocol-relative
func IsAbsoluteURL(u string) bool {
	return absoluteURL.MatchString(u)
}

// FullURL joins baseURL and u, then appends the encoded query.
// An absolute u ignores baseURL.
func FullURL(baseURL, u string, query map[string]any) string {
	full := u
	if !IsAbsoluteURL(u) {
		full = baseURL + u
	}

	q := EncodeQuery(query)
	if q == "" {
		return full
	}

	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + q
}

// Headers flattens response headers into a single-valued map with lower-case
// names. Repeated headers are joined with ", ".
func Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

package cache

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// volatileFields are stripped from request bodies before hashing so that
// retries of the same logical request produce the same fingerprint.
var volatileFields = map[string]struct{}{
	"request_id": {},
	"requestId":  {},
	"timestamp":  {},
	"nonce":      {},
	"trace_id":   {},
}

// fingerprintHeaders is the whitelisted header subset included in fingerprints.
var fingerprintHeaders = []string{"content-type"}

// Fingerprint computes a stable cache key for a request. The body is
// canonicalized (object keys sorted recursively, volatile fields removed) so
// that key order and retry metadata do not change the result. Non-JSON bodies
// are hashed as raw bytes.
func Fingerprint(path string, body []byte, headers map[string]string) string {
	var buf bytes.Buffer
	buf.WriteString("path=")
	buf.WriteString(path)
	buf.WriteByte('\n')

	var doc any
	if len(body) > 0 && json.Unmarshal(body, &doc) == nil {
		writeCanonical(&buf, doc)
	} else {
		buf.Write(body)
	}
	buf.WriteByte('\n')

	lowered := make(map[string]string, len(headers))
	for name, value := range headers {
		lowered[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	for _, name := range fingerprintHeaders {
		if value, ok := lowered[name]; ok {
			buf.WriteString(name)
			buf.WriteByte('=')
			buf.WriteString(value)
			buf.WriteByte('\n')
		}
	}

	return "v1:" + strconv.FormatUint(xxhash.Sum64(buf.Bytes()), 16)
}

// writeCanonical serializes a decoded JSON value deterministically.
func writeCanonical(buf *bytes.Buffer, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			if _, volatile := volatileFields[key]; volatile {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encoded, _ := json.Marshal(key)
			buf.Write(encoded)
			buf.WriteByte(':')
			writeCanonical(buf, v[key])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, item)
		}
		buf.WriteByte(']')
	case string:
		encoded, _ := json.Marshal(v)
		buf.Write(encoded)
	case float64:
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case nil:
		buf.WriteString("null")
	default:
		encoded, _ := json.Marshal(v)
		buf.Write(encoded)
	}
}

// Key joins a system namespace and a fingerprint into a full cache key.
func Key(system, fingerprint string) string {
	return system + ":" + fingerprint
}

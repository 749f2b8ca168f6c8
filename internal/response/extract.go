package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	jsonFencePattern = regexp.MustCompile("(?is)```json\\s*\\n?(.*?)```")
	anyFencePattern  = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)```")
)

// ErrorMessage is stored under the "error" key when no JSON object could be
// recovered from the model output.
const ErrorMessage = "Failed to extract JSON from response"

// ResponseFormatError reports model output that holds no parseable JSON object.
type ResponseFormatError struct {
	Text string
	Err  error
}

func (e *ResponseFormatError) Error() string {
	if e.Err != nil {
		return ErrorMessage + ": " + e.Err.Error()
	}
	return ErrorMessage
}

func (e *ResponseFormatError) Unwrap() error {
	return e.Err
}

// candidates lists the substrings worth trying as JSON, most specific first:
// a ```json fence, any fence, the whole text, then the outermost {...} and
// [...] spans.
func candidates(text string) []string {
	text = strings.TrimSpace(text)
	var out []string
	if m := jsonFencePattern.FindStringSubmatch(text); m != nil {
		out = append(out, m[1])
	}
	if m := anyFencePattern.FindStringSubmatch(text); m != nil {
		out = append(out, m[1])
	}
	out = append(out, text)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		out = append(out, text[start:end+1])
	}
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		out = append(out, text[start:end+1])
	}
	return out
}

// extractObject returns the first candidate that decodes to a JSON object.
// Numbers are kept as json.Number so decimal text survives unchanged.
func extractObject(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ResponseFormatError{Text: text, Err: errors.New("empty response")}
	}

	var lastErr error
	seen := make(map[string]struct{})
	for _, c := range candidates(text) {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}

		obj, err := decodeObject(c)
		if err == nil {
			return obj, nil
		}
		lastErr = err
	}
	return nil, &ResponseFormatError{Text: text, Err: lastErr}
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("top-level JSON value is not an object")
	}
	return obj, nil
}

// ExtractJSON returns the first candidate in text that is valid JSON of any
// kind, compacted. Callers that accept arrays as well as objects use it.
func ExtractJSON(text string) (json.RawMessage, error) {
	var lastErr error = errors.New("empty response")
	for _, c := range candidates(text) {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !json.Valid([]byte(c)) {
			lastErr = errors.New("invalid JSON")
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(c)); err != nil {
			lastErr = err
			continue
		}
		return buf.Bytes(), nil
	}
	return nil, &ResponseFormatError{Text: text, Err: lastErr}
}

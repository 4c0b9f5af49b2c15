package generation

import (
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("```(?:json|JSON)?")

// ExtractJSON returns the substring from the first '{' to the last '}'
// inclusive. The result is not validated as JSON.
func ExtractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return "", ErrMalformedOutput
	}
	return s[start : end+1], nil
}

// StripCodeFences removes markdown code fence markers and trims the result.
func StripCodeFences(s string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(s, ""))
}

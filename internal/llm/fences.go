package llm

import "regexp"

var codeFence = regexp.MustCompile("\\s*```(?:json|JSON)?\\s*")

// StripCodeFences removes markdown code fences models sometimes wrap JSON in.
func StripCodeFences(s string) string {
	return codeFence.ReplaceAllString(s, "")
}

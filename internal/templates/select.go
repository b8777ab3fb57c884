package templates

import (
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/conditions"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
)

// Select iterates the assignment list in order and returns the first
// template whose conditions all evaluate true. A template with no
// conditions always matches. The boolean reports whether any template
// matched; with no match the caller falls back to base settings only.
//
// Selection is deterministic and side-effect-free: identical inputs
// always yield the identical result, so concurrent evaluations can share
// the same template list.
func Select(evaluator *conditions.Evaluator, ordered []library.Template, attrs conditions.AttributeSet) (library.Template, bool) {
	for _, template := range ordered {
		if evaluator.EvaluateAll(template.Conditions, attrs) {
			return template, true
		}
	}
	return library.Template{}, false
}

package conditions

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/logging"
)

// Operator identifies a condition comparison.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIsTrue      Operator = "is_true"
	OpIsFalse     Operator = "is_false"
	OpIsSet       Operator = "is_set"
	OpIsUnset     Operator = "is_unset"
	OpMatches     Operator = "matches"
)

var operatorSet = map[Operator]struct{}{
	OpEquals:      {},
	OpNotEquals:   {},
	OpContains:    {},
	OpNotContains: {},
	OpGreaterThan: {},
	OpLessThan:    {},
	OpIsTrue:      {},
	OpIsFalse:     {},
	OpIsSet:       {},
	OpIsUnset:     {},
	OpMatches:     {},
}

// ParseOperator converts a string into a known Operator.
func ParseOperator(value string) (Operator, bool) {
	normalized := Operator(strings.ToLower(strings.TrimSpace(value)))
	_, ok := operatorSet[normalized]
	return normalized, ok
}

// Condition is one filter condition: an attribute path, an operator, and
// a reference value. Immutable once evaluated.
type Condition struct {
	Argument  string
	Operator  Operator
	Reference string
}

var caseFolder = cases.Fold()

// Evaluator evaluates conditions against attribute sets. Evaluation never
// returns an error: failures are logged and the condition reports false.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator constructs an evaluator logging failed evaluations through
// the provided logger.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logging.NewComponentLogger(logger, "conditions")}
}

// Evaluate reports whether the condition holds for the attribute set.
func (e *Evaluator) Evaluate(cond Condition, attrs AttributeSet) bool {
	value, present := attrs.Lookup(strings.TrimSpace(cond.Argument))

	switch cond.Operator {
	case OpIsSet:
		return present
	case OpIsUnset:
		return !present
	}

	if !present {
		e.logger.Debug("condition attribute missing; failing closed",
			logging.String("argument", cond.Argument),
			logging.String("operator", string(cond.Operator)),
		)
		return false
	}

	switch cond.Operator {
	case OpEquals:
		return e.equals(cond, value)
	case OpNotEquals:
		return !e.equals(cond, value)
	case OpContains:
		return e.contains(cond, value)
	case OpNotContains:
		return !e.contains(cond, value)
	case OpGreaterThan:
		return e.compareNumeric(cond, value, func(a, b float64) bool { return a > b })
	case OpLessThan:
		return e.compareNumeric(cond, value, func(a, b float64) bool { return a < b })
	case OpIsTrue:
		b, ok := value.AsBool()
		return ok && b
	case OpIsFalse:
		b, ok := value.AsBool()
		return ok && !b
	case OpMatches:
		return e.matches(cond, value)
	default:
		e.logger.Warn("unknown condition operator; failing closed",
			logging.String("argument", cond.Argument),
			logging.String("operator", string(cond.Operator)),
		)
		return false
	}
}

// EvaluateAll reports whether every condition holds; conditions combine
// with AND and an empty list is vacuously true.
func (e *Evaluator) EvaluateAll(conds []Condition, attrs AttributeSet) bool {
	for _, cond := range conds {
		if !e.Evaluate(cond, attrs) {
			return false
		}
	}
	return true
}

func (e *Evaluator) equals(cond Condition, value Value) bool {
	switch value.Kind() {
	case KindNumber:
		reference, err := strconv.ParseFloat(strings.TrimSpace(cond.Reference), 64)
		if err != nil {
			e.logFailure(cond, "reference is not numeric")
			return false
		}
		num, _ := value.AsNumber()
		return num == reference
	case KindBool:
		reference, err := strconv.ParseBool(strings.TrimSpace(cond.Reference))
		if err != nil {
			e.logFailure(cond, "reference is not boolean")
			return false
		}
		b, _ := value.AsBool()
		return b == reference
	default:
		return foldEqual(value.AsString(), cond.Reference)
	}
}

func (e *Evaluator) contains(cond Condition, value Value) bool {
	return strings.Contains(
		caseFolder.String(value.AsString()),
		caseFolder.String(cond.Reference),
	)
}

func (e *Evaluator) compareNumeric(cond Condition, value Value, cmp func(a, b float64) bool) bool {
	num, ok := value.AsNumber()
	if !ok {
		e.logFailure(cond, "attribute is not numeric")
		return false
	}
	reference, err := strconv.ParseFloat(strings.TrimSpace(cond.Reference), 64)
	if err != nil {
		e.logFailure(cond, "reference is not numeric")
		return false
	}
	return cmp(num, reference)
}

func (e *Evaluator) matches(cond Condition, value Value) bool {
	pattern, err := regexp.Compile(cond.Reference)
	if err != nil {
		e.logger.Warn("condition pattern invalid; failing closed",
			logging.String("argument", cond.Argument),
			logging.String("pattern", cond.Reference),
			logging.Error(err),
		)
		return false
	}
	return pattern.MatchString(value.AsString())
}

func (e *Evaluator) logFailure(cond Condition, reason string) {
	e.logger.Debug("condition evaluation failed; failing closed",
		logging.String("argument", cond.Argument),
		logging.String("operator", string(cond.Operator)),
		logging.String("reference", cond.Reference),
		logging.String("reason", reason),
	)
}

func foldEqual(a, b string) bool {
	return caseFolder.String(a) == caseFolder.String(b)
}

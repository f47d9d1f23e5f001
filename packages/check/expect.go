package check

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

type Operator string

const (
	OpEquals         Operator = "=="
	OpNotEquals      Operator = "!="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpContains       Operator = "contains"
	OpNotContains    Operator = "!contains"
	OpStartsWith     Operator = "startsWith"
	OpEndsWith       Operator = "endsWith"
	OpMatches        Operator = "matches"
	OpExists         Operator = "exists"
	OpNotExists      Operator = "!exists"
	OpLength         Operator = "length"
	OpType           Operator = "type"
	OpSchema         Operator = "schema"
)

var operators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true,
	OpGreaterThan: true, OpGreaterOrEqual: true, OpLessThan: true, OpLessOrEqual: true,
	OpContains: true, OpNotContains: true, OpStartsWith: true, OpEndsWith: true,
	OpMatches: true, OpExists: true, OpNotExists: true, OpLength: true, OpType: true, OpSchema: true,
}

// Expectation is a parsed "subject operator value" check, such as
// `status == 200` or `header Content-Type contains json`.
type Expectation struct {
	Raw      string
	Subject  string
	Operator Operator
	Expected any
}

type Result struct {
	Passed   bool
	Message  string
	Subject  string
	Operator Operator
	Expected any
	Actual   any
}

// ParseExpectation splits s on the first operator token. The value after
// the operator is decoded as JSON when possible, so 200 is a number and
// "200" a string; anything else is kept as text.
func ParseExpectation(s string) (*Expectation, error) {
	fields := strings.Fields(s)
	for i := 1; i < len(fields); i++ {
		op := Operator(fields[i])
		if !operators[op] {
			continue
		}
		exp := &Expectation{
			Raw:      s,
			Subject:  strings.Join(fields[:i], " "),
			Operator: op,
		}
		rest := strings.Join(fields[i+1:], " ")
		if op != OpExists && op != OpNotExists {
			if rest == "" {
				return nil, fmt.Errorf("expectation %q: missing value after %s", s, op)
			}
			exp.Expected = parseValue(rest)
		}
		return exp, nil
	}
	return nil, fmt.Errorf("expectation %q: no operator found", s)
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// Evaluate runs expectations against a response.
func Evaluate(resp *http.Response, expectations []*Expectation) []*Result {
	extractor := NewExtractor(resp)
	results := make([]*Result, len(expectations))
	for i, exp := range expectations {
		results[i] = extractor.Evaluate(exp)
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func (e *Extractor) Evaluate(exp *Expectation) *Result {
	result := &Result{
		Subject:  exp.Subject,
		Operator: exp.Operator,
		Expected: exp.Expected,
	}

	actual, found := e.Extract(exp.Subject)
	if found {
		result.Actual = actual
	}

	switch exp.Operator {
	case OpExists:
		result.Passed = found
		if !found {
			result.Message = "expected to exist"
		}
		return result
	case OpNotExists:
		result.Passed = !found
		if found {
			result.Message = "expected not to exist"
		}
		return result
	}

	if !found {
		result.Message = fmt.Sprintf("%s not found", exp.Subject)
		return result
	}

	result.Passed, result.Message = compare(actual, exp.Operator, exp.Expected)
	if exp.Operator == OpLength {
		result.Actual = computeLength(actual)
	}
	return result
}

func compare(actual any, op Operator, expected any) (bool, string) {
	switch op {
	case OpEquals:
		return equals(actual, expected)
	case OpNotEquals:
		if passed, _ := equals(actual, expected); passed {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return compareNumeric(actual, expected, op)
	case OpContains:
		return contains(actual, expected)
	case OpNotContains:
		if passed, _ := contains(actual, expected); passed {
			return false, fmt.Sprintf("expected not to contain %v", expected)
		}
		return true, ""
	case OpStartsWith:
		if strings.HasPrefix(cast.ToString(actual), cast.ToString(expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected '%v' to start with '%v'", actual, expected)
	case OpEndsWith:
		if strings.HasSuffix(cast.ToString(actual), cast.ToString(expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected '%v' to end with '%v'", actual, expected)
	case OpMatches:
		return matches(actual, expected)
	case OpLength:
		return length(actual, expected)
	case OpType:
		actualType := typeName(actual)
		if actualType == cast.ToString(expected) {
			return true, ""
		}
		return false, fmt.Sprintf("expected type %v, got %s", expected, actualType)
	case OpSchema:
		return schema(actual, expected)
	default:
		return false, fmt.Sprintf("unknown operator: %s", op)
	}
}

// schema validates actual against the JSON Schema file named by expected.
func schema(actual, expected any) (bool, string) {
	data, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}
	if err := ValidateSchemaFile(data, cast.ToString(expected)); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aErr := cast.ToFloat64E(actual)
	expectedNum, eErr := cast.ToFloat64E(expected)
	if aErr == nil && eErr == nil && actualNum == expectedNum {
		return true, ""
	}

	if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func compareNumeric(actual, expected any, op Operator) (bool, string) {
	actualNum, aErr := cast.ToFloat64E(actual)
	expectedNum, eErr := cast.ToFloat64E(expected)
	if aErr != nil || eErr != nil {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case OpGreaterThan:
		passed = actualNum > expectedNum
	case OpGreaterOrEqual:
		passed = actualNum >= expectedNum
	case OpLessThan:
		passed = actualNum < expectedNum
	case OpLessOrEqual:
		passed = actualNum <= expectedNum
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

func contains(actual, expected any) (bool, string) {
	if arr, ok := actual.([]any); ok {
		for _, item := range arr {
			if passed, _ := equals(item, expected); passed {
				return true, ""
			}
		}
		return false, fmt.Sprintf("expected array to include %v", expected)
	}
	if strings.Contains(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func matches(actual, expected any) (bool, string) {
	pattern := strings.TrimSuffix(strings.TrimPrefix(cast.ToString(expected), "/"), "/")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	if re.MatchString(fmt.Sprintf("%v", actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual any) int {
	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return -1
	}
}

func length(actual, expected any) (bool, string) {
	expectedLen, err := cast.ToIntE(expected)
	if err != nil {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(v).String()
	}
}

package simconfig

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenIterVar tokenKind = iota
	tokenRef
)

// token is one `${...}` occurrence inside a raw value.
type token struct {
	Kind       tokenKind
	Name       string
	Values     []string // iteration variables only
	ParallelTo string   // non-empty for `! master` variables
	start, end int      // byte offsets of the whole `${...}` in the raw value
}

// scanTokens extracts all `${...}` tokens from a raw value. Unnamed
// iteration variables are assigned sequential numeric names via autoIndex.
func scanTokens(value string, line int, autoIndex *int) ([]token, error) {
	var tokens []token
	for i := 0; i < len(value); {
		start := strings.Index(value[i:], "${")
		if start < 0 {
			break
		}
		start += i
		end := strings.Index(value[start:], "}")
		if end < 0 {
			return nil, fmt.Errorf("line %d: unterminated ${ in %q", line, value)
		}
		end += start + 1

		tok, err := parseToken(value[start+2:end-1], line, autoIndex)
		if err != nil {
			return nil, err
		}
		tok.start, tok.end = start, end
		tokens = append(tokens, tok)
		i = end
	}
	return tokens, nil
}

// parseToken classifies the body of one `${...}` occurrence.
func parseToken(body string, line int, autoIndex *int) (token, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return token{}, fmt.Errorf("line %d: empty ${} expression", line)
	}

	// An optional trailing `! master` binds the variable to another one.
	parallelTo := ""
	if bang := strings.LastIndex(body, "!"); bang >= 0 {
		parallelTo = strings.TrimSpace(body[bang+1:])
		body = strings.TrimSpace(body[:bang])
		if parallelTo == "" {
			return token{}, fmt.Errorf("line %d: missing variable name after '!'", line)
		}
	}

	if eq := strings.Index(body, "="); eq >= 0 {
		name := strings.TrimSpace(body[:eq])
		if name == "" {
			return token{}, fmt.Errorf("line %d: unnamed iteration variable must omit '='", line)
		}
		values, err := expandValueList(body[eq+1:], line)
		if err != nil {
			return token{}, err
		}
		return token{Kind: tokenIterVar, Name: name, Values: values, ParallelTo: parallelTo}, nil
	}

	if strings.Contains(body, ",") || rangeRe.MatchString(body) {
		values, err := expandValueList(body, line)
		if err != nil {
			return token{}, err
		}
		name := strconv.Itoa(*autoIndex)
		*autoIndex++
		return token{Kind: tokenIterVar, Name: name, Values: values, ParallelTo: parallelTo}, nil
	}

	if parallelTo != "" {
		return token{}, fmt.Errorf("line %d: reference ${%s} cannot carry '! %s'", line, body, parallelTo)
	}
	return token{Kind: tokenRef, Name: body}, nil
}

var rangeRe = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*\.\.\s*(-?\d+(?:\.\d+)?)(?:\s+step\s+(-?\d+(?:\.\d+)?))?$`)

// expandValueList splits a comma-separated value list, expanding `a..b` and
// `a..b step c` numeric ranges inline.
func expandValueList(list string, line int) ([]string, error) {
	var values []string
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("line %d: empty item in value list %q", line, list)
		}
		m := rangeRe.FindStringSubmatch(item)
		if m == nil {
			values = append(values, item)
			continue
		}
		expanded, err := expandRange(m, line)
		if err != nil {
			return nil, err
		}
		values = append(values, expanded...)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("line %d: empty value list", line)
	}
	return values, nil
}

func expandRange(m []string, line int) ([]string, error) {
	from, _ := strconv.ParseFloat(m[1], 64)
	to, _ := strconv.ParseFloat(m[2], 64)
	step := 1.0
	if m[3] != "" {
		step, _ = strconv.ParseFloat(m[3], 64)
	}
	if step == 0 {
		return nil, fmt.Errorf("line %d: range step must be non-zero", line)
	}
	if (to-from)*step < 0 {
		return nil, fmt.Errorf("line %d: range %s..%s does not terminate with step %s", line, m[1], m[2], m[3])
	}

	integral := isIntegral(from) && isIntegral(to) && isIntegral(step)
	var values []string
	for i := 0; ; i++ {
		v := from + float64(i)*step
		if (step > 0 && v > to+1e-9) || (step < 0 && v < to-1e-9) {
			break
		}
		if integral {
			values = append(values, strconv.Itoa(int(math.Round(v))))
		} else {
			values = append(values, strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return values, nil
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f)
}

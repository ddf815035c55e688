package ansible

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Bool accepts JSON booleans as well as the string and numeric spellings
// Ansible templating produces ("yes", "no", "on", "off", "1", "0"...).
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*b = false
	case bool:
		*b = Bool(t)
	case float64:
		*b = t != 0
	case string:
		parsed, err := ParseBool(t)
		if err != nil {
			return err
		}
		*b = Bool(parsed)
	default:
		return fmt.Errorf("cannot convert %s to a boolean", data)
	}
	return nil
}

// ParseBool converts an Ansible boolean spelling.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on", "1", "true", "y", "t":
		return true, nil
	case "no", "off", "0", "false", "n", "f", "":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a valid boolean", s)
}

// Int accepts JSON numbers and numeric strings.
type Int int

func (i *Int) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*i = 0
	case float64:
		if t != float64(int(t)) {
			return fmt.Errorf("%v is not an integer", t)
		}
		*i = Int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return fmt.Errorf("%q is not an integer", t)
		}
		*i = Int(n)
	default:
		return fmt.Errorf("cannot convert %s to an integer", data)
	}
	return nil
}

// String accepts JSON strings and scalars, the way Ansible stringifies
// `type='str'` parameters.
type String string

func (s *String) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = String(t)
	case float64:
		*s = String(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = String(strconv.FormatBool(t))
	default:
		return fmt.Errorf("cannot convert %s to a string", data)
	}
	return nil
}

// StringList accepts a JSON list or a comma separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*l = nil
	case string:
		*l = SplitList(t)
	case []any:
		out := make(StringList, 0, len(t))
		for _, e := range t {
			switch s := e.(type) {
			case string:
				out = append(out, s)
			case float64:
				out = append(out, strconv.FormatFloat(s, 'f', -1, 64))
			default:
				return fmt.Errorf("list element %v is not a string", e)
			}
		}
		*l = out
	default:
		return fmt.Errorf("cannot convert %s to a list", data)
	}
	return nil
}

// SplitList splits a comma separated value, dropping empty elements.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

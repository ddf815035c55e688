package ansible

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/blueboxgroup/ursula/internal/sanitise"
)

const internalPrefix = "_ansible_"

// ErrNoArgs is returned when the args file holds no JSON object.
var ErrNoArgs = errors.New("module arguments are not a JSON object")

// Args are the parameters of a single module invocation.
type Args struct {
	raw []byte

	// CheckMode is set when Ansible runs with --check.
	CheckMode bool
	// Diff is set when Ansible runs with --diff.
	Diff bool
	// ModuleName is the name Ansible invoked the module under, if it told us.
	ModuleName string
}

// LoadArgs reads the args file Ansible passes as the first argument to a
// binary module.
func LoadArgs(path string) (*Args, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module arguments: %w", err)
	}
	return ParseArgs(data)
}

// ParseArgs parses the JSON parameters of a module invocation.
func ParseArgs(data []byte) (*Args, error) {
	data = bytes.TrimSpace(data)
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, ErrNoArgs
	}

	a := &Args{raw: data}
	a.CheckMode = gjson.GetBytes(data, internalPrefix+"check_mode").Bool()
	a.Diff = gjson.GetBytes(data, internalPrefix+"diff").Bool()
	a.ModuleName = gjson.GetBytes(data, internalPrefix+"module_name").String()
	return a, nil
}

// Params returns the module parameters without the Ansible internal keys.
func (a *Args) Params() map[string]any {
	out := map[string]any{}
	gjson.ParseBytes(a.raw).ForEach(func(key, value gjson.Result) bool {
		if !strings.HasPrefix(key.String(), internalPrefix) {
			out[key.String()] = value.Value()
		}
		return true
	})
	return out
}

// Sanitised returns the parameters with secrets masked, for logging.
func (a *Args) Sanitised() map[string]any {
	return sanitise.Params(a.Params())
}

// Decode decodes the parameters into v, which must be a pointer to a struct
// already holding its defaults, and validates it. Unknown parameters are an
// error.
func (a *Args) Decode(v any) error {
	// internal keys are not parameters and null means "unset", which must
	// not clobber defaults.
	var drop []string
	gjson.ParseBytes(a.raw).ForEach(func(key, value gjson.Result) bool {
		if strings.HasPrefix(key.String(), internalPrefix) || value.Type == gjson.Null {
			drop = append(drop, key.String())
		}
		return true
	})
	data := append([]byte(nil), a.raw...)
	for _, key := range drop {
		var err error
		if data, err = sjson.DeleteBytes(data, escapeKey(key)); err != nil {
			return fmt.Errorf("failed to strip %s: %w", key, err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid module arguments: %w", unsupportedParam(err))
	}
	if err := Validate(v); err != nil {
		return fmt.Errorf("invalid module arguments: %w", err)
	}
	return nil
}

func unsupportedParam(err error) error {
	const prefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, prefix) {
		return fmt.Errorf("unsupported parameter %s", strings.TrimPrefix(msg, prefix))
	}
	return err
}

func escapeKey(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(key)
}

// names only need to start with a word character, so br-ex is accepted.
var wordStartRegex = regexp.MustCompile(`^\w`)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("wordstart", func(fl validator.FieldLevel) bool {
		return wordStartRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Validate runs the struct validation tags on v and reports the failures by
// parameter name.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return prettyPrintValidationError(err)
	}
	return nil
}

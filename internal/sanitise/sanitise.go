package sanitise

import (
	"regexp"
	"strings"
)

const mask = "*****"

var (
	// Match the password part (between ':' and '@)' of the connection string.
	cred = regexp.MustCompile(":(.*?):(.*?)@")

	// Matches a password handed to a CLI either as `--flag value` or `--flag=value`
	// for the flags OpenStack and Ceph tools accept secrets on.
	secretFlag = regexp.MustCompile(`(--(?:os-password|password|key|secret)(?:=|\s+))('[^']*'|"[^"]*"|\S+)`)

	// parameter names whose values are never logged.
	secretParams = []string{"password", "secret", "token", "api_key"}
)

// URI replaces passwords with '*****' in connection strings that are
// in the form of <scheme>://<username>:<password>@<domain>.<tld> or
// <scheme>://<username>:<password>@<pqdn>.
func URI(s string) string {
	// The scheme substring ({http,mongodb}://) is the first match ($1) of ':'
	// and the remaining characters are placed back to the sanitised string,
	// since that's not the credential.
	// The remaining regex delimiters ':' and '@' are then respectively
	// prepended and appended to the second match (the credential, or rather,
	// its replacement '*****').
	return cred.ReplaceAllString(s, ":$1:"+mask+"@")
}

// Command replaces the values passed to secret carrying flags with '*****'.
func Command(s string) string {
	return secretFlag.ReplaceAllString(URI(s), "${1}"+mask)
}

// IsSecretParam reports whether a module parameter holds a credential.
func IsSecretParam(name string) bool {
	name = strings.ToLower(name)
	for _, p := range secretParams {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Params returns a copy of the module parameters with every credential masked,
// descending into nested objects such as the OpenStack `auth` dict.
func Params(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch {
		case IsSecretParam(k) && v != nil:
			out[k] = mask
		default:
			if nested, ok := v.(map[string]any); ok {
				out[k] = Params(nested)
				continue
			}
			out[k] = v
		}
	}
	return out
}

// String replaces all white spaces and ":" in the string to "-", and converts everything to lower case.
func String(s string) string {
	// convert to lower case
	sanitised := strings.ToLower(s)
	// replace all white space with "-"
	sanitised = strings.ReplaceAll(sanitised, " ", "-")
	// replace all ":" with "-"
	sanitised = strings.ReplaceAll(sanitised, ":", "-")
	// replace all "_" with "-"
	sanitised = strings.ReplaceAll(sanitised, "_", "-")
	return sanitised
}

package allocation

import (
	"strconv"
	"strings"
)

// Environ is an immutable snapshot of process environment variables. It is
// captured once at startup; components consult the snapshot instead of the
// ambient process environment.
type Environ map[string]string

// ParseEnviron builds a snapshot from "KEY=value" pairs as returned by os.Environ.
func ParseEnviron(pairs []string) Environ {
	env := make(Environ, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Lookup returns the trimmed value of key and whether it is set and non empty.
func (e Environ) Lookup(key string) (string, bool) {
	value, ok := e[key]
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// Get returns the trimmed value of key or "".
func (e Environ) Get(key string) string {
	value, _ := e.Lookup(key)
	return value
}

// Int returns key parsed as a decimal integer. Scheduler values such as
// "16(x2)" are reduced to their leading number.
func (e Environ) Int(key string) (int, bool) {
	value, ok := e.Lookup(key)
	if !ok {
		return 0, false
	}
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool returns key parsed as a boolean; "1", "true", "yes" and "on" are true.
func (e Environ) Bool(key string) (bool, bool) {
	value, ok := e.Lookup(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// With returns a copy of the snapshot with key set to value.
func (e Environ) With(key, value string) Environ {
	clone := make(Environ, len(e)+1)
	for k, v := range e {
		clone[k] = v
	}
	clone[key] = value
	return clone
}

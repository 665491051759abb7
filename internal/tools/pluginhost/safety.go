package pluginhost

import (
	"fmt"
	"regexp"
	"strings"
)

// Patterns that flag a plug-in implementation blob as unsafe to hand to
// os/exec: the blob is a free-text field on a model-issued create_tool
// call, not operator-authored config, so it gets the same shell-metachar/
// control-char scrutiny an operator-facing command builder would apply to
// untrusted input.
var (
	shellMetachars = regexp.MustCompile(`[;&|` + "`" + `$<>]`)
	controlChars   = regexp.MustCompile(`[\r\n]`)
	quoteChars     = regexp.MustCompile(`["']`)
	bareName       = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)
)

// sanitizeExecutable validates the leading token of an implementation blob
// (the executable to spawn per call). Paths (anything starting with
// ./, ~, a separator, or a drive letter) are allowed through once they
// clear the shell-metachar/control-char/quote checks; bare names are
// additionally required to match a conservative identifier pattern and may
// not start with "-" (option injection into the child's argv).
func sanitizeExecutable(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("executable is empty")
	}
	if strings.Contains(trimmed, "\x00") {
		return "", fmt.Errorf("executable contains a null byte")
	}
	if controlChars.MatchString(trimmed) {
		return "", fmt.Errorf("executable contains control characters")
	}
	if shellMetachars.MatchString(trimmed) {
		return "", fmt.Errorf("executable contains shell metacharacters")
	}
	if quoteChars.MatchString(trimmed) {
		return "", fmt.Errorf("executable contains quote characters")
	}
	if looksLikePath(trimmed) {
		return trimmed, nil
	}
	if strings.HasPrefix(trimmed, "-") {
		return "", fmt.Errorf("executable starts with '-' (option injection)")
	}
	if !bareName.MatchString(trimmed) {
		return "", fmt.Errorf("executable contains characters not allowed in a bare name")
	}
	return trimmed, nil
}

func looksLikePath(value string) bool {
	if strings.HasPrefix(value, ".") || strings.HasPrefix(value, "~") {
		return true
	}
	if strings.Contains(value, "/") || strings.Contains(value, "\\") {
		return true
	}
	return len(value) >= 2 && value[1] == ':' && isDriveLetter(value[0])
}

func isDriveLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// sanitizeExtraArgs validates every trailing token of an implementation
// blob (extra args passed to the spawned executable). Arguments are
// allowed a wider character set than the executable itself (a leading "-"
// or embedded quotes are ordinary argv content), but null bytes, newlines,
// and shell metacharacters are still rejected since the blob is untrusted.
func sanitizeExtraArgs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "" {
			return nil, fmt.Errorf("argument %d is empty", i)
		}
		if strings.Contains(arg, "\x00") {
			return nil, fmt.Errorf("argument %d contains a null byte", i)
		}
		if controlChars.MatchString(arg) {
			return nil, fmt.Errorf("argument %d contains control characters", i)
		}
		if shellMetachars.MatchString(arg) {
			return nil, fmt.Errorf("argument %d contains shell metacharacters", i)
		}
		out = append(out, arg)
	}
	return out, nil
}

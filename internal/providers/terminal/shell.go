package terminal

import (
	"fmt"
	"sort"
	"strings"
)

// TermName is exported to every shell through TERM.
const TermName = "xterm-256color"

// loginShells get "-l" when no explicit arguments are configured.
var loginShells = map[string]bool{
	"zsh":  true,
	"bash": true,
	"fish": true,
}

// DefaultShell picks the platform shell from the environment.
func DefaultShell(goos string, getenv func(string) string) string {
	if goos == "windows" {
		if s := strings.TrimSpace(getenv("COMSPEC")); s != "" {
			return s
		}
		return "cmd.exe"
	}
	if s := strings.TrimSpace(getenv("SHELL")); s != "" {
		return s
	}
	return "/bin/bash"
}

// DefaultArgs returns the arguments used for shell when none are configured.
func DefaultArgs(shell string) []string {
	if loginShells[shellBase(shell)] {
		return []string{"-l"}
	}
	return nil
}

// shellBase lowercases the basename and strips a trailing ".exe".
func shellBase(shell string) string {
	name := shell
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToLower(name)
	return strings.TrimSuffix(name, ".exe")
}

// BuildEnv appends the terminal overlay to base. Later entries win when
// the process environment is deduplicated.
func BuildEnv(base []string, overlay map[string]string) []string {
	env := make([]string, 0, len(base)+len(overlay)+1)
	env = append(env, base...)
	env = append(env, "TERM="+TermName)

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, overlay[k]))
	}
	return env
}

package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultShell(t *testing.T) {
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}

	tests := []struct {
		name string
		goos string
		env  map[string]string
		want string
	}{
		{name: "unix shell var", goos: "linux", env: map[string]string{"SHELL": "/usr/bin/fish"}, want: "/usr/bin/fish"},
		{name: "unix fallback", goos: "darwin", env: nil, want: "/bin/bash"},
		{name: "windows comspec", goos: "windows", env: map[string]string{"COMSPEC": `C:\Windows\system32\cmd.exe`, "SHELL": "/bin/zsh"}, want: `C:\Windows\system32\cmd.exe`},
		{name: "windows fallback", goos: "windows", env: nil, want: "cmd.exe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultShell(tt.goos, env(tt.env)))
		})
	}
}

func TestDefaultArgs(t *testing.T) {
	tests := []struct {
		shell string
		want  []string
	}{
		{"/bin/zsh", []string{"-l"}},
		{"/usr/local/bin/BASH", []string{"-l"}},
		{"fish", []string{"-l"}},
		{`C:\Program Files\Git\bin\bash.exe`, []string{"-l"}},
		{"/bin/sh", nil},
		{"pwsh.exe", nil},
		{"/usr/bin/zshx", nil},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultArgs(tt.shell))
		})
	}
}

func TestBuildEnvOrdersOverlay(t *testing.T) {
	env := BuildEnv([]string{"HOME=/h"}, map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"HOME=/h", "TERM=xterm-256color", "A=1", "B=2"}, env)
}

func TestClampDim(t *testing.T) {
	assert.Equal(t, uint16(1), clampDim(0))
	assert.Equal(t, uint16(80), clampDim(80))
	assert.Equal(t, uint16(0xFFFF), clampDim(1<<20))
}

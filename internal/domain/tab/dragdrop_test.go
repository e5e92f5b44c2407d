package tab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapePath(t *testing.T) {
	tests := []struct {
		goos string
		path string
		want string
	}{
		{goos: "linux", path: "/tmp/a", want: "'/tmp/a'"},
		{goos: "darwin", path: "/tmp/my file", want: "'/tmp/my file'"},
		{goos: "linux", path: "/tmp/it's", want: `'/tmp/it'\''s'`},
		{goos: "windows", path: `C:\x\a.txt`, want: `C:\x\a.txt`},
		{goos: "windows", path: `C:\my docs\a.txt`, want: `"C:\my docs\a.txt"`},
		{goos: "windows", path: `C:\a&b`, want: `"C:\a&b"`},
		{goos: "windows", path: `C:\a^b`, want: `"C:\a^b"`},
	}

	for _, tt := range tests {
		t.Run(tt.goos+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapePath(tt.goos, tt.path))
		})
	}
}

func TestEscapePathsSkipsEmpty(t *testing.T) {
	assert.Equal(t, "'/a' '/b'", EscapePaths("linux", []string{"/a", "", "/b"}))
	assert.Empty(t, EscapePaths("linux", nil))
}

func TestParseDragPayload(t *testing.T) {
	assert.Equal(t, "notes/Plan", ParseDragPayload("obsidian", "obsidian://open?vault=v&file=notes%2FPlan"))
	assert.Equal(t, "Plan", ParseDragPayload("obsidian", " Plan "))
	assert.Equal(t, "obsidian://open?vault=v", ParseDragPayload("obsidian", "obsidian://open?vault=v"))
	assert.Equal(t, "notes://open?file=x", ParseDragPayload("obsidian", "notes://open?file=x"))
}

func TestInsertOutput(t *testing.T) {
	block := CodeBlock("\nout\n")
	assert.Equal(t, "```\nout\n```", block)

	assert.Equal(t, "a\n<!-- terminal-output -->\n"+block+"\nb", InsertOutput("a\n<!-- terminal-output -->b", block))
	assert.Equal(t, "a\n"+block+"\n", InsertOutput("a", block))
}

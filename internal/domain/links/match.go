package links

// Kind classifies a detected link.
type Kind string

const (
	KindFile     Kind = "file"
	KindURL      Kind = "url"
	KindInternal Kind = "internal"
	KindEmail    Kind = "email"
)

// Match is one link span on a single line of text. Start and End are byte
// offsets into the line, End exclusive. Line and Column are 1-based and
// zero when absent.
type Match struct {
	Kind    Kind   `json:"kind"`
	Value   string `json:"value"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Adapter string `json:"adapter,omitempty"`
}

// HasPosition reports whether the match carries a line number.
func (m Match) HasPosition() bool { return m.Line > 0 }

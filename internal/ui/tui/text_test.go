package tui

import "testing"

func TestTruncatePath(t *testing.T) {
	tests := map[string]struct {
		path  string
		width int
		want  string
	}{
		"fits":       {path: "src/a.ts", width: 20, want: "src/a.ts"},
		"exact":      {path: "src/a.ts", width: 8, want: "src/a.ts"},
		"keeps tail": {path: "src/components/App.tsx", width: 12, want: "...s/App.tsx"},
		"zero width": {path: "src/a.ts", width: 0, want: ""},
		"tiny width": {path: "src/a.ts", width: 3, want: "src"},
		"wide runes": {path: "文档/说明.json", width: 10, want: "...明.json"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := truncatePath(tt.path, tt.width); got != tt.want {
				t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.width, got, tt.want)
			}
		})
	}
}

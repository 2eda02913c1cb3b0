package explorer

import "testing"

func TestHighlight(t *testing.T) {
	tests := []struct {
		name  string
		input string
		query string
		want  string
	}{
		{name: "single match keeps original case", input: "Budget-2024.pdf", query: "budget", want: "[Budget]-2024.pdf"},
		{name: "every occurrence", input: "aXaXa", query: "a", want: "[a]X[a]X[a]"},
		{name: "matches do not overlap", input: "aaaa", query: "aa", want: "[aa][aa]"},
		{name: "no match", input: "logo.png", query: "budget", want: "logo.png"},
		{name: "empty query", input: "logo.png", query: "", want: "logo.png"},
		{name: "empty name", input: "", query: "a", want: ""},
		{name: "multibyte runes", input: "Café Crème", query: "CRÈME", want: "Café [Crème]"},
		{name: "query longer than name", input: "ab", query: "abc", want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Highlight(tt.input, tt.query, "[", "]")
			if got != tt.want {
				t.Errorf("Highlight(%q, %q) = %q, want %q", tt.input, tt.query, got, tt.want)
			}
		})
	}
}

func TestContainsFold(t *testing.T) {
	tests := []struct {
		s, substr string
		want      bool
	}{
		{"Annual Report", "report", true},
		{"Annual Report", "REPORT", true},
		{"Annual Report", "budget", false},
		{"ÉTÉ", "été", true},
		{"short", "", true},
	}

	for _, tt := range tests {
		if got := containsFold(tt.s, tt.substr); got != tt.want {
			t.Errorf("containsFold(%q, %q) = %v, want %v", tt.s, tt.substr, got, tt.want)
		}
	}
}

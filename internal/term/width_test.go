package term

import "testing"

func TestTrimEOL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"hello\n", "hello"},
		{"hello\r\n", "hello"},
		{"hello", "hello"},
		{"\n", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := trimEOL(tt.in); got != tt.want {
			t.Errorf("trimEOL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayWidth(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		startCol int
		tabWidth int
		want     int
	}{
		{"ascii", "hello", 0, 4, 5},
		{"empty", "", 0, 4, 0},
		{"cjk doubles", "日本", 0, 4, 4},
		{"tab from col 0", "\t", 0, 4, 4},
		{"tab from col 2", "\t", 2, 4, 2},
		{"tab stop mid text", "ab\tc", 0, 4, 5},
		{"wide tab stops", "\t", 0, 8, 8},
		{"combining mark is one cell", "é", 0, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayWidth(tt.text, tt.startCol, tt.tabWidth); got != tt.want {
				t.Errorf("displayWidth(%q, %d, %d) = %d, want %d",
					tt.text, tt.startCol, tt.tabWidth, got, tt.want)
			}
		})
	}
}

func TestByteToColumn(t *testing.T) {
	tests := []struct {
		text   string
		offset int
		want   int
	}{
		{"hello", 0, 0},
		{"hello", 3, 3},
		{"hello", 5, 5},
		{"日本語", 3, 2},
		{"日本語", 9, 6},
		{"a\tb", 2, 4},
		{"\tx", 1, 4},
	}
	for _, tt := range tests {
		if got := byteToColumn(tt.text, tt.offset, 4); got != tt.want {
			t.Errorf("byteToColumn(%q, %d) = %d, want %d", tt.text, tt.offset, got, tt.want)
		}
	}
}

func TestColumnToByte(t *testing.T) {
	tests := []struct {
		text string
		col  int
		want int
	}{
		{"hello", 3, 3},
		{"hello", 99, 5},
		{"日本語", 1, 0},
		{"日本語", 3, 3},
		{"a\tb", 2, 1},
		{"a\tb", 4, 2},
	}
	for _, tt := range tests {
		if got := columnToByte(tt.text, tt.col, 4); got != tt.want {
			t.Errorf("columnToByte(%q, %d) = %d, want %d", tt.text, tt.col, got, tt.want)
		}
	}
}

func TestColumnByteRoundTrip(t *testing.T) {
	text := "fn\tmain(日本) {"
	for col := 0; col < displayWidth(text, 0, 4)+2; col++ {
		off := columnToByte(text, col, 4)
		back := byteToColumn(text, off, 4)
		// Columns inside a tab or wide rune snap to the cluster start.
		if back > col {
			t.Errorf("col %d -> byte %d -> col %d moved right", col, off, back)
		}
	}
}

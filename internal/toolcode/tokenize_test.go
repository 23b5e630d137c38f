package toolcode

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "comma inside single quotes",
			in:   "location='Riyadh, Saudi Arabia', unit='celsius'",
			want: []string{"location='Riyadh, Saudi Arabia'", "unit='celsius'"},
		},
		{
			name: "comma inside double quotes",
			in:   `q="a, b", n=2`,
			want: []string{`q="a, b"`, "n=2"},
		},
		{
			name: "other quote is literal inside quotes",
			in:   `a="it's", b='say "hi", ok'`,
			want: []string{`a="it's"`, `b='say "hi", ok'`},
		},
		{
			name: "comma inside parens",
			in:   "a=f(1, 2), b=3",
			want: []string{"a=f(1, 2)", "b=3"},
		},
		{
			name: "parens inside quotes do not nest",
			in:   "a='(', b=2",
			want: []string{"a='('", "b=2"},
		},
		{
			name: "no backslash escapes",
			in:   `a='x\', b='y'`,
			want: []string{`a='x\'`, "b='y'"},
		},
		{
			name: "negative depth keeps commas literal",
			in:   "a=1), b=2",
			want: []string{"a=1), b=2"},
		},
		{
			name: "blank segments dropped",
			in:   " , ,a=1, ",
			want: []string{"a=1"},
		},
		{
			name: "multiline",
			in:   "a=1,\n  b='two'\n",
			want: []string{"a=1", "b='two'"},
		},
		{
			name: "invalid utf-8 kept byte for byte",
			in:   "a='x\xff y', b=2",
			want: []string{"a='x\xff y'", "b=2"},
		},
		{
			name: "multi-byte text",
			in:   "city='Zürich, CH', note='日本'",
			want: []string{"city='Zürich, CH'", "note='日本'"},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Tokenize(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

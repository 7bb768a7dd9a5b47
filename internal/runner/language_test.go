package runner

import (
	"reflect"
	"testing"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		id   string
		want Language
	}{
		{"javascript", JavaScript},
		{"python", Python},
		{"clike", CLike},
		{"java", Java},
		{"go", Go},
		{"rust", Rust},
		{"ruby", Ruby},
		{"php", PHP},
		{"shell", Shell},
		{"r", R},
		// Unrecognized identifiers fall back to javascript
		{"brainfuck", JavaScript},
		{"", JavaScript},
		{"PYTHON", JavaScript},
	}

	for _, tt := range tests {
		if got := ParseLanguage(tt.id); got != tt.want {
			t.Errorf("ParseLanguage(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestUnknownLanguageBehavesLikeJavaScript(t *testing.T) {
	unknown := ParseLanguage("cobol")
	if unknown.Ext() != JavaScript.Ext() {
		t.Errorf("ext = %q, want %q", unknown.Ext(), JavaScript.Ext())
	}
	if !reflect.DeepEqual(unknown.steps("/tmp/x"), JavaScript.steps("/tmp/x")) {
		t.Error("unknown language steps differ from javascript")
	}
}

func TestLanguageMapping(t *testing.T) {
	tests := []struct {
		lang     Language
		id       string
		ext      string
		compiled bool
	}{
		{JavaScript, "javascript", "js", false},
		{Python, "python", "py", false},
		{CLike, "clike", "cpp", true},
		{Java, "java", "java", true},
		{Go, "go", "go", false},
		{Rust, "rust", "rs", true},
		{Ruby, "ruby", "rb", false},
		{PHP, "php", "php", false},
		{Shell, "shell", "sh", false},
		{R, "r", "r", false},
	}

	if len(tests) != len(Languages) {
		t.Fatalf("test table covers %d languages, Languages has %d", len(tests), len(Languages))
	}

	for _, tt := range tests {
		if got := tt.lang.String(); got != tt.id {
			t.Errorf("%v.String() = %q, want %q", tt.lang, got, tt.id)
		}
		if got := tt.lang.Ext(); got != tt.ext {
			t.Errorf("%s: ext = %q, want %q", tt.id, got, tt.ext)
		}
		if got := tt.lang.Compiled(); got != tt.compiled {
			t.Errorf("%s: compiled = %v, want %v", tt.id, got, tt.compiled)
		}
		if steps := tt.lang.steps("/tmp/ws"); len(steps) == 0 {
			t.Errorf("%s: no execution steps", tt.id)
		} else if tt.compiled && len(steps) != 2 {
			t.Errorf("%s: %d steps, want compile+run", tt.id, len(steps))
		}
	}
}

func TestJavaSourceFileMatchesClassName(t *testing.T) {
	if got := Java.SourceFile(); got != "Main.java" {
		t.Errorf("SourceFile = %q, want Main.java", got)
	}
}

package runner

import "path/filepath"

// Language enumerates the supported toolchains. The set is closed: adding a
// language means adding a constant here and extending the switches below,
// which the compiler and the exhaustiveness test keep honest.
type Language int

const (
	JavaScript Language = iota
	Python
	CLike
	Java
	Go
	Rust
	Ruby
	PHP
	Shell
	R
)

// Languages lists every supported language in declaration order.
var Languages = []Language{
	JavaScript, Python, CLike, Java, Go, Rust, Ruby, PHP, Shell, R,
}

// ParseLanguage resolves a client-supplied identifier. Unrecognized
// identifiers fall back to JavaScript rather than failing.
func ParseLanguage(id string) Language {
	switch id {
	case "javascript":
		return JavaScript
	case "python":
		return Python
	case "clike":
		return CLike
	case "java":
		return Java
	case "go":
		return Go
	case "rust":
		return Rust
	case "ruby":
		return Ruby
	case "php":
		return PHP
	case "shell":
		return Shell
	case "r":
		return R
	default:
		return JavaScript
	}
}

// String returns the wire identifier for the language.
func (l Language) String() string {
	switch l {
	case JavaScript:
		return "javascript"
	case Python:
		return "python"
	case CLike:
		return "clike"
	case Java:
		return "java"
	case Go:
		return "go"
	case Rust:
		return "rust"
	case Ruby:
		return "ruby"
	case PHP:
		return "php"
	case Shell:
		return "shell"
	case R:
		return "r"
	}
	return "javascript"
}

// Ext returns the source file extension, without the dot.
func (l Language) Ext() string {
	switch l {
	case JavaScript:
		return "js"
	case Python:
		return "py"
	case CLike:
		return "cpp"
	case Java:
		return "java"
	case Go:
		return "go"
	case Rust:
		return "rs"
	case Ruby:
		return "rb"
	case PHP:
		return "php"
	case Shell:
		return "sh"
	case R:
		return "r"
	}
	return "js"
}

// SourceFile returns the file name the source text is materialized under.
// Java requires the file name to match the public class, so Java submissions
// must declare `public class Main`.
func (l Language) SourceFile() string {
	if l == Java {
		return "Main.java"
	}
	return "main." + l.Ext()
}

// Compiled reports whether execution produces a binary artifact that must be
// cleaned up alongside the source.
func (l Language) Compiled() bool {
	switch l {
	case CLike, Java, Rust:
		return true
	}
	return false
}

// steps returns the argv sequences to run inside the given workspace
// directory. Multi-step entries compile first, then run the artifact.
func (l Language) steps(dir string) [][]string {
	src := filepath.Join(dir, l.SourceFile())
	bin := filepath.Join(dir, "main")
	switch l {
	case JavaScript:
		return [][]string{{"node", src}}
	case Python:
		return [][]string{{"python3", src}}
	case CLike:
		return [][]string{{"g++", src, "-o", bin}, {bin}}
	case Java:
		return [][]string{{"javac", src}, {"java", "-cp", dir, "Main"}}
	case Go:
		return [][]string{{"go", "run", src}}
	case Rust:
		return [][]string{{"rustc", src, "-o", bin}, {bin}}
	case Ruby:
		return [][]string{{"ruby", src}}
	case PHP:
		return [][]string{{"php", src}}
	case Shell:
		return [][]string{{"bash", src}}
	case R:
		return [][]string{{"Rscript", src}}
	}
	return [][]string{{"node", src}}
}

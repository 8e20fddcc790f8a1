package sandbox

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnsupportedLanguage indicates the requested language has no toolchain entry.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language identifies a supported submission language.
type Language string

// Supported language identifiers.
const (
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguagePython     Language = "python"
	LanguageJava       Language = "java"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
)

// LanguageConfig describes the toolchain used to compile and run a language.
type LanguageConfig struct {
	Image      string
	FileName   string
	CompileCmd string
	RunCmd     string
	Compiled   bool
}

// languageConfigs is seeded once at startup and never mutated afterwards, so it
// is safe to share across concurrent judge workers.
var languageConfigs = map[Language]LanguageConfig{
	LanguageC: {
		Image:      "gcc:latest",
		FileName:   "program.c",
		CompileCmd: "gcc -o program program.c -std=c11 -O2 -Wall -Wextra",
		RunCmd:     "./program",
		Compiled:   true,
	},
	LanguageCPP: {
		Image:      "gcc:latest",
		FileName:   "program.cpp",
		CompileCmd: "g++ -o program program.cpp -std=c++17 -O2 -Wall -Wextra",
		RunCmd:     "./program",
		Compiled:   true,
	},
	LanguagePython: {
		Image:    "python:3.11-slim",
		FileName: "program.py",
		RunCmd:   "python3 program.py",
	},
	LanguageJava: {
		// javac insists on the file name matching the public class.
		Image:      "openjdk:17-slim",
		FileName:   "Main.java",
		CompileCmd: "javac Main.java",
		RunCmd:     "java Main",
		Compiled:   true,
	},
	LanguageJavaScript: {
		Image:    "node:18-slim",
		FileName: "program.js",
		RunCmd:   "node program.js",
	},
	LanguageTypeScript: {
		Image:      "node:18-slim",
		FileName:   "program.ts",
		CompileCmd: "npx tsc program.ts --lib es2015",
		RunCmd:     "node program.js",
		Compiled:   true,
	},
	LanguageGo: {
		Image:      "golang:1.21-alpine",
		FileName:   "program.go",
		CompileCmd: "go build -o program program.go",
		RunCmd:     "./program",
		Compiled:   true,
	},
	LanguageRust: {
		Image:      "rust:1.75-slim",
		FileName:   "program.rs",
		CompileCmd: "rustc -O program.rs -o program",
		RunCmd:     "./program",
		Compiled:   true,
	},
}

// LookupLanguage resolves the toolchain configuration for a language identifier.
func LookupLanguage(id string) (LanguageConfig, error) {
	cfg, ok := languageConfigs[Language(strings.ToLower(strings.TrimSpace(id)))]
	if !ok {
		return LanguageConfig{}, ErrUnsupportedLanguage
	}
	return cfg, nil
}

// SupportedLanguages returns the sorted list of language identifiers the judge accepts.
func SupportedLanguages() []string {
	ids := make([]string, 0, len(languageConfigs))
	for id := range languageConfigs {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	return ids
}

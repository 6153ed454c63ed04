package scanner

import (
	"path/filepath"
	"strings"
)

// languageByExt maps file extensions to language names for the
// breakdown table. Unknown extensions still count lines and bytes.
var languageByExt = map[string]string{
	".py":     "python",
	".js":     "javascript",
	".jsx":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".go":     "go",
	".rs":     "rust",
	".rb":     "ruby",
	".java":   "java",
	".kt":     "kotlin",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".hpp":    "cpp",
	".cs":     "csharp",
	".swift":  "swift",
	".php":    "php",
	".lua":    "lua",
	".sh":     "shell",
	".bash":   "shell",
	".zsh":    "shell",
	".md":     "markdown",
	".mdx":    "markdown",
	".json":   "json",
	".yaml":   "yaml",
	".yml":    "yaml",
	".toml":   "toml",
	".xml":    "xml",
	".html":   "html",
	".css":    "css",
	".scss":   "scss",
	".sql":    "sql",
	".r":      "r",
	".ex":     "elixir",
	".exs":    "elixir",
	".erl":    "erlang",
	".hs":     "haskell",
	".ml":     "ocaml",
	".scala":  "scala",
	".clj":    "clojure",
	".dart":   "dart",
	".vue":    "vue",
	".svelte": "svelte",
}

// skipDirs are directories never descended into.
var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true, "node_modules": true,
	"__pycache__": true, ".venv": true, "venv": true, "env": true,
	".env": true, ".tox": true, ".mypy_cache": true, ".pytest_cache": true,
	".ruff_cache": true, "dist": true, "build": true, ".next": true,
	".nuxt": true, "target": true, "vendor": true, ".cargo": true,
	".gradle": true, "coverage": true, ".nyc_output": true, "egg-info": true,
}

// skipExts are binary or generated extensions never opened.
var skipExts = map[string]bool{
	".pyc": true, ".pyo": true, ".so": true, ".dylib": true, ".dll": true,
	".exe": true, ".bin": true, ".o": true, ".a": true, ".class": true,
	".jar": true, ".war": true, ".ear": true, ".zip": true, ".tar": true,
	".gz": true, ".bz2": true, ".xz": true, ".7z": true, ".rar": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".svg": true, ".webp": true, ".mp3": true, ".mp4": true,
	".wav": true, ".avi": true, ".mov": true, ".pdf": true, ".doc": true,
	".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".lock": true,
}

// MaxFileSize caps which files are opened for line counting and
// structure extraction.
const MaxFileSize = 5_000_000

// DetectLanguage returns the language name for a path, or "unknown".
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return "unknown"
}

// ShouldSkipDir reports whether a directory name is excluded from walks.
func ShouldSkipDir(name string) bool {
	return skipDirs[name] || strings.HasPrefix(name, ".")
}

// ShouldSkipFile reports whether a path has a binary or generated
// extension.
func ShouldSkipFile(path string) bool {
	return skipExts[strings.ToLower(filepath.Ext(path))]
}

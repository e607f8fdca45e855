package classify

import "strings"

// Canonical language names. Lowercase throughout; these appear verbatim in
// persisted records and graph node annotations.
const (
	LangGo         = "go"
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangHTML       = "html"
	LangCSS        = "css"
	LangJSON       = "json"
	LangYAML       = "yaml"
	LangXML        = "xml"
	LangMarkdown   = "markdown"
	LangText       = "text"
	LangImage      = "image"
	LangDocument   = "document"
	LangUnknown    = "unknown"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".go":   LangGo,
	".py":   LangPython,
	".pyi":  LangPython,
	".pyx":  LangPython,
	".pyw":  LangPython,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".mts":  LangTypeScript,
	".html": LangHTML,
	".htm":  LangHTML,
	".vue":  LangHTML,
	".css":  LangCSS,
	".scss": LangCSS,
	".sass": LangCSS,
	".json": LangJSON,
	".yaml": LangYAML,
	".yml":  LangYAML,
	".xml":  LangXML,
	".svg":  LangXML,
	".md":   LangMarkdown,
	".mdx":  LangMarkdown,
	".txt":  LangText,
	".rst":  LangText,
	".log":  LangText,
	".ini":  LangText,
	".cfg":  LangText,
	".conf": LangText,
	".csv":  LangText,
	".sh":   LangText,
	".bat":  LangText,
	".sql":  LangText,
	".c":    LangText,
	".h":    LangText,
	".cpp":  LangText,
	".hpp":  LangText,
	".rs":   LangText,
	".java": LangText,
	".rb":   LangText,
	".php":  LangText,

	".png":  LangImage,
	".jpg":  LangImage,
	".jpeg": LangImage,
	".gif":  LangImage,
	".bmp":  LangImage,
	".ico":  LangImage,

	".pdf":  LangDocument,
	".doc":  LangDocument,
	".docx": LangDocument,
	".odt":  LangDocument,
	".xlsx": LangDocument,
	".ppt":  LangDocument,
	".pptx": LangDocument,
}

// languageToExts is the reverse index used by the dependency resolver to
// expand an import specifier into candidate file paths.
var languageToExts = map[string][]string{
	LangGo:         {".go"},
	LangPython:     {".py", ".pyi", ".pyx", ".pyw"},
	LangJavaScript: {".js", ".jsx", ".mjs", ".cjs"},
	LangTypeScript: {".ts", ".tsx", ".mts"},
	LangHTML:       {".html", ".htm", ".vue"},
	LangCSS:        {".css", ".scss", ".sass"},
	LangJSON:       {".json"},
	LangYAML:       {".yaml", ".yml"},
	LangXML:        {".xml"},
	LangMarkdown:   {".md"},
}

// LanguageForFile returns the canonical language for a path based on its
// extension. Returns ("", false) when the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	lang, ok := extToLanguage[Ext(path)]
	return lang, ok
}

// ExtensionsForLanguage returns the set of extensions associated with a
// language, for import-specifier candidate generation. Unknown languages
// get a broad default covering the resolvable languages.
func ExtensionsForLanguage(lang string) []string {
	if exts, ok := languageToExts[strings.ToLower(lang)]; ok {
		return exts
	}
	return []string{".py", ".js", ".ts", ".jsx", ".tsx", ".vue", ".go", ".css", ".scss", ".html"}
}

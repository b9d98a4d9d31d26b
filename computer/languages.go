package computer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
)

// Shape is how a language's source becomes a running process.
type Shape int

const (
	// Interpret runs the source file with an interpreter.
	Interpret Shape = iota
	// Compile builds an artifact first and runs it only if the build succeeds.
	Compile
)

func (s Shape) String() string {
	if s == Compile {
		return "compile"
	}
	return "interpret"
}

// Language describes one runtime. Command templates may use these
// placeholders:
//
//	{source}   path of the written source file
//	{dir}      the per-call working directory
//	{artifact} path of the compiled executable
//	{name}     base name of the source file without extension
//	{python}   the Python interpreter (the managed venv once it exists)
type Language struct {
	Shape Shape
	Ext   string
	// File is the source file name; "" means {name}{Ext}.
	File     string
	Scaffold [][]string
	Compile  []string
	Run      []string
	// Requires lists binaries that must be on PATH.
	Requires []string
	// Packages maps a package manager to the package providing Requires.
	// The "" key applies to managers without their own entry.
	Packages map[string]string
	// Prepare rewrites the source and may choose a different {name}.
	Prepare func(code, name string) (string, string)
}

// Languages is the runtime catalog keyed by canonical language id.
var Languages = map[string]Language{
	"python": {
		Shape:    Interpret,
		Ext:      ".py",
		Run:      []string{"{python}", "-u", "{source}"},
		Requires: []string{"python3"},
		Packages: map[string]string{"": "python3", "apt-get": "python3-venv", "pacman": "python", "brew": "python", "choco": "python"},
	},
	"javascript": {
		Shape:    Interpret,
		Ext:      ".js",
		Run:      []string{"node", "{source}"},
		Requires: []string{"node"},
		Packages: map[string]string{"": "nodejs", "brew": "node"},
	},
	"shell": {
		Shape:    Interpret,
		Ext:      ".sh",
		Run:      []string{"bash", "{source}"},
		Requires: []string{"bash"},
		Packages: map[string]string{"": "bash", "choco": "git"},
	},
	"ruby": {
		Shape:    Interpret,
		Ext:      ".rb",
		Run:      []string{"ruby", "{source}"},
		Requires: []string{"ruby"},
		Packages: map[string]string{"": "ruby"},
	},
	"perl": {
		Shape:    Interpret,
		Ext:      ".pl",
		Run:      []string{"perl", "{source}"},
		Requires: []string{"perl"},
		Packages: map[string]string{"": "perl", "choco": "strawberryperl"},
	},
	"php": {
		Shape:    Interpret,
		Ext:      ".php",
		Run:      []string{"php", "{source}"},
		Requires: []string{"php"},
		Packages: map[string]string{"": "php", "apt-get": "php-cli"},
	},
	"powershell": {
		Shape:    Interpret,
		Ext:      ".ps1",
		Run:      []string{"pwsh", "-NoLogo", "-NoProfile", "-NonInteractive", "-File", "{source}"},
		Requires: []string{"pwsh"},
		Packages: map[string]string{"": "powershell", "choco": "powershell-core"},
	},
	"java": {
		Shape:    Compile,
		Ext:      ".java",
		Compile:  []string{"javac", "-d", "{dir}", "{source}"},
		Run:      []string{"java", "-cp", "{dir}", "{name}"},
		Requires: []string{"javac", "java"},
		Packages: map[string]string{"": "java-latest-openjdk-devel", "apt-get": "default-jdk", "pacman": "jdk-openjdk", "zypper": "java-devel", "brew": "openjdk", "choco": "openjdk"},
		Prepare:  renameJavaClass,
	},
	"go": {
		Shape:    Compile,
		Ext:      ".go",
		Compile:  []string{"go", "build", "-o", "{artifact}", "{source}"},
		Run:      []string{"{artifact}"},
		Requires: []string{"go"},
		Packages: map[string]string{"": "golang", "apt-get": "golang-go", "pacman": "go", "brew": "go"},
	},
	"cpp": {
		Shape:    Compile,
		Ext:      ".cpp",
		Compile:  []string{"g++", "-std=c++17", "-O2", "-o", "{artifact}", "{source}"},
		Run:      []string{"{artifact}"},
		Requires: []string{"g++"},
		Packages: map[string]string{"": "gcc-c++", "apt-get": "g++", "pacman": "gcc", "brew": "gcc", "choco": "mingw"},
	},
	"rust": {
		Shape:    Compile,
		Ext:      ".rs",
		Compile:  []string{"rustc", "-O", "-o", "{artifact}", "{source}"},
		Run:      []string{"{artifact}"},
		Requires: []string{"rustc"},
		Packages: map[string]string{"": "rust", "apt-get": "rustc"},
	},
	"swift": {
		Shape:    Compile,
		Ext:      ".swift",
		Compile:  []string{"swiftc", "-o", "{artifact}", "{source}"},
		Run:      []string{"{artifact}"},
		Requires: []string{"swiftc"},
		Packages: map[string]string{"": "swift", "apt-get": "swiftlang", "pacman": "swift-bin"},
	},
	"csharp": {
		Shape: Compile,
		Ext:   ".cs",
		File:  "Program.cs",
		Scaffold: [][]string{
			{"dotnet", "new", "console", "--force", "--output", "{dir}", "--name", "{name}"},
		},
		Compile:  []string{"dotnet", "build", "{dir}", "--nologo", "--verbosity", "quiet", "--output", "{dir}/out"},
		Run:      []string{"dotnet", "{dir}/out/{name}.dll"},
		Requires: []string{"dotnet"},
		Packages: map[string]string{"": "dotnet-sdk-8.0", "pacman": "dotnet-sdk", "brew": "dotnet-sdk", "choco": "dotnet-sdk"},
		Prepare: func(code, name string) (string, string) {
			return code, "App" + compactID()
		},
	},
	"kotlin": {
		Shape:    Compile,
		Ext:      ".kt",
		Compile:  []string{"kotlinc", "{source}", "-include-runtime", "-d", "{dir}/{name}.jar"},
		Run:      []string{"java", "-jar", "{dir}/{name}.jar"},
		Requires: []string{"kotlinc", "java"},
		Packages: map[string]string{"": "kotlin", "choco": "kotlinc"},
	},
	"r": {
		Shape:    Interpret,
		Ext:      ".R",
		Run:      []string{"Rscript", "{source}"},
		Requires: []string{"Rscript"},
		Packages: map[string]string{"": "R", "apt-get": "r-base", "pacman": "r", "brew": "r", "choco": "r.project"},
	},
	"typescript": {
		Shape:    Compile,
		Ext:      ".ts",
		Compile:  []string{"tsc", "--target", "es2020", "--module", "commonjs", "--outDir", "{dir}/out", "{source}"},
		Run:      []string{"node", "{dir}/out/{name}.js"},
		Requires: []string{"tsc", "node"},
		Packages: map[string]string{"": "typescript", "apt-get": "node-typescript"},
	},
	"groovy": {
		Shape:    Interpret,
		Ext:      ".groovy",
		Run:      []string{"groovy", "{source}"},
		Requires: []string{"groovy"},
		Packages: map[string]string{"": "groovy"},
	},
	"scala": {
		Shape:    Interpret,
		Ext:      ".scala",
		Run:      []string{"scala", "{source}"},
		Requires: []string{"scala"},
		Packages: map[string]string{"": "scala"},
	},
	"c": {
		Shape:    Compile,
		Ext:      ".c",
		Compile:  []string{"gcc", "-O2", "-o", "{artifact}", "{source}", "-lm"},
		Run:      []string{"{artifact}"},
		Requires: []string{"gcc"},
		Packages: map[string]string{"": "gcc", "choco": "mingw"},
	},
	"fortran": {
		Shape:    Compile,
		Ext:      ".f90",
		Compile:  []string{"gfortran", "-O2", "-o", "{artifact}", "{source}"},
		Run:      []string{"{artifact}"},
		Requires: []string{"gfortran"},
		Packages: map[string]string{"": "gcc-gfortran", "apt-get": "gfortran", "pacman": "gcc-fortran", "brew": "gcc", "choco": "mingw"},
	},
	"lua": {
		Shape:    Interpret,
		Ext:      ".lua",
		Run:      []string{"lua", "{source}"},
		Requires: []string{"lua"},
		Packages: map[string]string{"": "lua", "apt-get": "lua5.4"},
	},
	"haskell": {
		Shape:    Compile,
		Ext:      ".hs",
		Compile:  []string{"ghc", "-O", "-outputdir", "{dir}", "-o", "{artifact}", "{source}"},
		Run:      []string{"{artifact}"},
		Requires: []string{"ghc"},
		Packages: map[string]string{"": "ghc"},
	},
	"erlang": {
		Shape:    Interpret,
		Ext:      ".erl",
		Run:      []string{"escript", "{source}"},
		Requires: []string{"escript"},
		Packages: map[string]string{"": "erlang"},
	},
	"elixir": {
		Shape:    Interpret,
		Ext:      ".exs",
		Run:      []string{"elixir", "{source}"},
		Requires: []string{"elixir"},
		Packages: map[string]string{"": "elixir"},
	},
}

// Aliases maps alternative language tags to canonical ids.
var Aliases = map[string]string{
	"py":      "python",
	"python3": "python",
	"js":      "javascript",
	"node":    "javascript",
	"nodejs":  "javascript",
	"sh":      "shell",
	"bash":    "shell",
	"zsh":     "shell",
	"rb":      "ruby",
	"pl":      "perl",
	"ps1":     "powershell",
	"pwsh":    "powershell",
	"golang":  "go",
	"c++":     "cpp",
	"cxx":     "cpp",
	"cc":      "cpp",
	"rs":      "rust",
	"cs":      "csharp",
	"c#":      "csharp",
	"dotnet":  "csharp",
	"kt":      "kotlin",
	"ts":      "typescript",
	"hs":      "haskell",
	"erl":     "erlang",
	"ex":      "elixir",
	"exs":     "elixir",
	"f90":     "fortran",
	"rscript": "r",
}

// Resolve returns the canonical id for a language tag and whether the
// catalog knows it.
func Resolve(language string) (string, bool) {
	id := strings.ToLower(strings.TrimSpace(language))
	if canonical, ok := Aliases[id]; ok {
		id = canonical
	}
	_, ok := Languages[id]
	return id, ok
}

// LanguageIDs returns the canonical ids in sorted order.
func LanguageIDs() []string {
	ids := make([]string, 0, len(Languages))
	for id := range Languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// suggestLanguage returns the closest known id for an unknown tag, or "".
func suggestLanguage(language string) string {
	matches := fuzzy.Find(strings.ToLower(language), LanguageIDs())
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

var javaPublicClass = regexp.MustCompile(`public\s+(?:(?:final|abstract|strictfp)\s+)*class\s+([A-Za-z_$][A-Za-z0-9_$]*)`)

// renameJavaClass renames the public class to a unique identifier. Code
// without a public class is wrapped in one with a main method.
func renameJavaClass(code, _ string) (string, string) {
	name := "Main" + compactID()
	m := javaPublicClass.FindStringSubmatch(code)
	if m == nil {
		return fmt.Sprintf("public class %s {\n    public static void main(String[] args) throws Exception {\n%s\n    }\n}\n", name, code), name
	}
	ident := regexp.MustCompile(`\b` + regexp.QuoteMeta(m[1]) + `\b`)
	return ident.ReplaceAllString(code, name), name
}

func compactID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

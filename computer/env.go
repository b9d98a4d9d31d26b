package computer

import (
	"slices"
	"strings"
)

// secretSuffixes mark variables withheld from child processes. Matching
// ignores case.
var secretSuffixes = []string{"_API_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_CREDENTIAL"}

// passthroughEnv is never filtered, whatever its name.
var passthroughEnv = []string{
	"PATH", "HOME", "USER", "SHELL", "LANG", "TERM", "TMPDIR",
	"GOPATH", "GOROOT", "CARGO_HOME", "RUSTUP_HOME", "NVM_DIR", "PYENV_ROOT",
	"DOTNET_ROOT", "JAVA_HOME", "XDG_CONFIG_HOME", "XDG_DATA_HOME", "XDG_CACHE_HOME",
}

func isSecret(name string) bool {
	if slices.Contains(passthroughEnv, name) {
		return false
	}
	upper := strings.ToUpper(name)
	return slices.ContainsFunc(secretSuffixes, func(s string) bool {
		return strings.HasSuffix(upper, s)
	})
}

// filterEnvironment drops secrets and malformed entries from environ, then
// appends extra.
func filterEnvironment(environ []string, extra ...string) []string {
	out := slices.DeleteFunc(slices.Clone(environ), func(kv string) bool {
		name, _, ok := strings.Cut(kv, "=")
		return !ok || isSecret(name)
	})
	return append(out, extra...)
}

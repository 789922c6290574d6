package compile

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/conneroisu/compileorch/internal/logging"
)

// javaReleaseFlags are the spellings that, if already present, mean the
// caller has already pinned a target release and no adjustment is needed.
var javaReleaseFlags = []string{"-release", "--release", "-java-output-version"}

// adjustForJDKRelease implements spec.md §4.5a: if a release flag is
// already present, or javaHome matches the server's own java home, options
// are returned unchanged. Otherwise the target JDK's version is discovered
// from javaHome and a "-release <n>" flag is appended, ignored, or warned
// about depending on how it compares to the server's own JVM version. Any
// discovery/parse failure is swallowed; options pass through unchanged.
func adjustForJDKRelease(ctx context.Context, logger logging.Logger, scalacOptions []string, javaHome, serverJavaHome string) []string {
	if hasReleaseFlag(scalacOptions) {
		return scalacOptions
	}
	if javaHome == "" || javaHome == serverJavaHome {
		return scalacOptions
	}

	targetVersion, ok := discoverJDKVersion(javaHome)
	if !ok {
		return scalacOptions
	}

	serverVersion := serverJVMMajorVersion()

	switch {
	case serverVersion > targetVersion:
		return append(scalacOptions, "-release", strconv.Itoa(targetVersion))
	case serverVersion == targetVersion:
		return scalacOptions
	default:
		if logger != nil {
			logger.Warn(ctx, nil, "build JDK is newer than server JVM; runtime and build JDK may diverge",
				"server_version", serverVersion, "target_version", targetVersion)
		}
		return scalacOptions
	}
}

func hasReleaseFlag(options []string) bool {
	for _, opt := range options {
		for _, flag := range javaReleaseFlags {
			if opt == flag || strings.HasPrefix(opt, flag+"=") {
				return true
			}
		}
	}
	return false
}

// stripFatalWarningsFlag removes -Xfatal-warnings from options (it is
// always stripped before reaching the engine, spec.md §4.5a) and reports
// whether it was present.
func stripFatalWarningsFlag(options []string) ([]string, bool) {
	out := make([]string, 0, len(options))
	found := false
	for _, opt := range options {
		if opt == "-Xfatal-warnings" {
			found = true
			continue
		}
		out = append(out, opt)
	}
	return out, found
}

// discoverJDKVersion reads <home>/release, falling back to inferring 1.8 if
// <home>/lib/rt.jar exists (JDK 8 and earlier shipped rt.jar; 9+ did not).
func discoverJDKVersion(javaHome string) (int, bool) {
	version, ok := readReleaseFile(javaHome)
	if ok {
		return version, true
	}
	if _, err := os.Stat(filepath.Join(javaHome, "lib", "rt.jar")); err == nil {
		return 8, true
	}
	return 0, false
}

func readReleaseFile(javaHome string) (int, bool) {
	f, err := os.Open(filepath.Join(javaHome, "release"))
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "JAVA_VERSION=") {
			continue
		}
		raw := strings.Trim(strings.TrimPrefix(line, "JAVA_VERSION="), `"`)
		return parseJavaVersion(raw)
	}
	return 0, false
}

// parseJavaVersion parses either the old "1.8.0_312" style (where the
// component after "1." is the major version) or the modern "17.0.2" style
// (leading digits are the major version).
func parseJavaVersion(raw string) (int, bool) {
	if strings.HasPrefix(raw, "1.") {
		rest := strings.TrimPrefix(raw, "1.")
		return leadingDigits(rest)
	}
	return leadingDigits(raw)
}

func leadingDigits(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// serverJVMMajorVersion returns this process's own JVM-equivalent major
// version, derived from runtime.Version() the same way parseJavaVersion
// derives a target version, for comparison purposes only -- the
// orchestrator itself is not a JVM process, so this is a structural stand-in
// adjustForJDKRelease uses to decide whether a -release flag is needed.
func serverJVMMajorVersion() int {
	v := strings.TrimPrefix(runtime.Version(), "go")
	n, ok := parseJavaVersion(v)
	if !ok {
		return 0
	}
	return n
}

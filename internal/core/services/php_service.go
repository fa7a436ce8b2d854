package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/jsonc"
)

// firstDecimalPair is a deliberately naive heuristic: it takes the first
// <major>.<minor> token in the constraint and ignores operators entirely,
// so "^8.1|^8.2" yields 8.1 and ">=7.4 <8.3" yields 7.4.
var firstDecimalPair = regexp.MustCompile(`(\d+\.\d+)`)

var interpreterSuffix = regexp.MustCompile(`^php(\d+\.\d+)$`)

type composerManifest struct {
	Require map[string]json.RawMessage `json:"require"`
}

// PHPService picks and locates PHP interpreters.
type PHPService struct {
	defaultVersion string
	binDir         string
}

func NewPHPService(defaultVersion, binDir string) *PHPService {
	return &PHPService{defaultVersion: defaultVersion, binDir: binDir}
}

// DetectVersion reads <projectPath>/composer.json and applies the
// first-decimal-pair heuristic to require.php. Any problem along the way
// yields the default version.
func (s *PHPService) DetectVersion(projectPath string) string {
	data, err := os.ReadFile(filepath.Join(projectPath, "composer.json"))
	if err != nil {
		return s.defaultVersion
	}

	var manifest composerManifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &manifest); err != nil {
		return s.defaultVersion
	}

	raw, ok := manifest.Require["php"]
	if !ok {
		return s.defaultVersion
	}
	var constraint string
	if err := json.Unmarshal(raw, &constraint); err != nil {
		return s.defaultVersion
	}

	return ExtractVersion(constraint, s.defaultVersion)
}

// ExtractVersion returns the first <major>.<minor> token in constraint, or fallback.
func ExtractVersion(constraint, fallback string) string {
	if m := firstDecimalPair.FindString(constraint); m != "" {
		return m
	}
	return fallback
}

// Binary returns the interpreter path for version.
func (s *PHPService) Binary(version string) string {
	return filepath.Join(s.binDir, "php"+version)
}

// InstalledVersions lists the version suffixes of php<major>.<minor>
// binaries in the bin dir, oldest first.
func (s *PHPService) InstalledVersions() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.binDir, "php[0-9]*.[0-9]*"))
	if err != nil {
		return nil, err
	}

	versions := lo.Uniq(lo.FilterMap(matches, func(path string, _ int) (string, bool) {
		m := interpreterSuffix.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			return "", false
		}
		return m[1], true
	}))

	sort.Slice(versions, func(i, j int) bool { return versionLess(versions[i], versions[j]) })
	return versions, nil
}

func versionLess(a, b string) bool {
	ap, bp := strings.SplitN(a, ".", 2), strings.SplitN(b, ".", 2)
	for i := 0; i < 2; i++ {
		ai, _ := strconv.Atoi(ap[i])
		bi, _ := strconv.Atoi(bp[i])
		if ai != bi {
			return ai < bi
		}
	}
	return false
}

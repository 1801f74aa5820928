package guard

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrPathDenied возвращается при попытке затирания защищённого пути
var ErrPathDenied = errors.New("путь защищён от затирания")

// RuleSet - неизменяемый набор правил защиты путей. Загружается один раз
// при старте и передаётся явно, без глобального состояния, чтобы тесты
// могли использовать изолированные наборы правил.
type RuleSet struct {
	blacklist []string
	whitelist []string
	system    []string
}

// NewRuleSet строит набор правил из настроек. Встроенные системные корни
// добавляются всегда и не могут быть переопределены whitelist-ом.
func NewRuleSet(blacklist, whitelist []string) *RuleSet {
	return &RuleSet{
		blacklist: normalizeAll(blacklist),
		whitelist: normalizeAll(whitelist),
		system:    builtinSystemRoots(),
	}
}

// builtinSystemRoots возвращает системные директории платформы,
// затирание которых запрещено безусловно.
func builtinSystemRoots() []string {
	if runtime.GOOS == "windows" {
		roots := []string{
			`C:\Windows`,
			`C:\Program Files`,
			`C:\Program Files (x86)`,
		}
		return normalizeAll(roots)
	}
	return normalizeAll([]string{
		"/bin", "/sbin", "/usr", "/etc", "/boot", "/lib", "/lib64",
		"/System", // macOS
		"/proc", "/sys", "/dev",
	})
}

func normalizeAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		out = append(out, normalize(p))
	}
	return out
}

func normalize(p string) string {
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

// isUnder проверяет, лежит ли path внутри prefix (или совпадает с ним)
func isUnder(path, prefix string) bool {
	if path == prefix {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(prefix, sep) {
		prefix += sep
	}
	return strings.HasPrefix(path, prefix)
}

// Check проверяет путь против правил защиты. Возвращает nil (разрешено)
// либо ошибку, оборачивающую ErrPathDenied, с причиной отказа.
// Порядок: системные корни -> whitelist -> blacklist.
func (rs *RuleSet) Check(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: не удалось нормализовать путь %q: %v", ErrPathDenied, path, err)
	}
	abs = normalize(abs)

	// Системные корни не переопределяются whitelist-ом
	for _, root := range rs.system {
		if isUnder(abs, root) {
			return fmt.Errorf("%w: %s находится в системной директории %s", ErrPathDenied, path, root)
		}
	}

	for _, w := range rs.whitelist {
		if isUnder(abs, w) {
			return nil
		}
	}

	for _, b := range rs.blacklist {
		if isUnder(abs, b) {
			return fmt.Errorf("%w: %s попадает под запрещённый префикс %s", ErrPathDenied, path, b)
		}
	}

	return nil
}

// IsDenied сообщает, является ли ошибка отказом по правилам защиты
func IsDenied(err error) bool {
	return errors.Is(err, ErrPathDenied)
}

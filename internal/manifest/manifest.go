// Package manifest models the ordered list of resources an application needs
// for offline availability, plus the <appName>-v<N> naming convention that
// ties a populated store to a deployable version. The deploy package consumes
// both: the manifest drives population, the naming convention drives stale
// version eviction.
package manifest

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Manifest 表示一次部署所需的有序资源路径列表，条目均为根相对路径。
type Manifest struct {
	entries []string
}

// New 归一化并校验资源路径列表。规则：
//   - 条目不能为空，统一补全前导 "/" 并做 path.Clean；
//   - 不允许出现 ".."、协议前缀或重复条目；
//   - 不允许与缓存元数据 sidecar 后缀冲突的路径。
func New(paths []string) (Manifest, error) {
	if len(paths) == 0 {
		return Manifest{}, fmt.Errorf("manifest 不能为空")
	}

	seen := make(map[string]struct{}, len(paths))
	entries := make([]string, 0, len(paths))
	for i, raw := range paths {
		normalized, err := NormalizePath(raw)
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest[%d]: %w", i, err)
		}
		if _, dup := seen[normalized]; dup {
			return Manifest{}, fmt.Errorf("manifest[%d]: 重复条目 %s", i, normalized)
		}
		seen[normalized] = struct{}{}
		entries = append(entries, normalized)
	}

	return Manifest{entries: entries}, nil
}

// Entries 返回归一化后的路径副本，保持声明顺序。
func (m Manifest) Entries() []string {
	return append([]string(nil), m.entries...)
}

// Len 返回条目数量。
func (m Manifest) Len() int {
	return len(m.entries)
}

// NormalizePath 将任意用户书写的资源路径归一化为根相对形式。
func NormalizePath(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("路径不能为空")
	}
	if strings.Contains(trimmed, "://") {
		return "", fmt.Errorf("仅支持同源相对路径: %s", trimmed)
	}

	// path.Clean 会静默吞掉越出根目录的 ".."，这里手动检查层级
	depth := 0
	for _, seg := range strings.Split(trimmed, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", fmt.Errorf("路径不允许越级: %s", trimmed)
			}
		default:
			depth++
		}
	}

	cleaned := path.Clean("/" + trimmed)
	if strings.HasSuffix(cleaned, ".meta.json") {
		return "", fmt.Errorf("路径与缓存元数据后缀冲突: %s", trimmed)
	}
	return cleaned, nil
}

// StoreName 根据 <appName>-v<N> 约定拼接 store 名称。
func StoreName(appName string, version int) string {
	return fmt.Sprintf("%s-v%d", appName, version)
}

// ParseStoreName 拆解 store 名称，返回所属应用与版本号。
// 不符合 <appName>-v<N> 约定的名称返回 ok=false，清理阶段会跳过它们。
func ParseStoreName(name string) (appName string, version int, ok bool) {
	idx := strings.LastIndex(name, "-v")
	if idx <= 0 {
		return "", 0, false
	}

	appName = name[:idx]
	rawVersion := name[idx+2:]
	if rawVersion == "" {
		return "", 0, false
	}

	version, err := strconv.Atoi(rawVersion)
	if err != nil || version < 0 {
		return "", 0, false
	}
	return appName, version, true
}

// ValidateAppName 校验应用名是否能安全参与 store 命名与磁盘目录。
func ValidateAppName(name string) error {
	if name == "" {
		return fmt.Errorf("应用名不能为空")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return fmt.Errorf("应用名仅允许小写字母、数字与连字符: %s", name)
		}
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return fmt.Errorf("应用名不能以连字符开头或结尾: %s", name)
	}
	return nil
}

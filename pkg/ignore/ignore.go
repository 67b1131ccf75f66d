package ignore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义忽略规则所在的文件，位于被导入目录的根部
const FileName = ".dagaoignore"

// defaultRules 强制生效，防止把仓库自身或敏感文件导入 DAG
var defaultRules = []string{
	// --- 关键系统目录 ---
	".dagao", // 仓库目录，导入它会导致无限递归
	".git",

	// --- 安全与配置 ---
	"config.yaml", // 可能含有 S3 Secret Key
	".env",

	// --- 常见垃圾文件 ---
	".DS_Store",
	"Thumbs.db",
}

// Matcher 判断一个相对路径是否应该在递归导入时跳过
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 编译 默认规则 + rootPath/.dagaoignore + extra
func NewMatcher(rootPath string, extra ...string) (*Matcher, error) {
	rules := append(slices.Clone(defaultRules), extra...)

	ignoreFilePath := filepath.Join(rootPath, FileName)
	_, err := os.Stat(ignoreFilePath)
	switch {
	case err == nil:
		// 文件规则在前，默认与额外规则在后，后者不能被 "!" 取消
		ignorer, err := gitignore.CompileIgnoreFileAndLines(ignoreFilePath, rules...)
		if err != nil {
			return nil, err
		}
		return &Matcher{ignorer: ignorer}, nil
	case errors.Is(err, fs.ErrNotExist):
		return &Matcher{ignorer: gitignore.CompileIgnoreLines(rules...)}, nil
	default:
		return nil, err
	}
}

// Matches 检查给定的路径是否匹配忽略规则
// path 是相对于导入根目录的 slash 路径 (例如 "data/model.bin")。
// 目录需要传 isDir=true，这样 "temp/" 这类只针对目录的规则才会生效。
func (m *Matcher) Matches(path string, isDir bool) bool {
	if m == nil || m.ignorer == nil {
		return false
	}
	if isDir && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return m.ignorer.MatchesPath(path)
}

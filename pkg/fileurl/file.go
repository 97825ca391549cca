// Package fileurl holds the small path helpers used for the database file, the config file and archive keys
// Package fileurl 提供数据库文件、配置文件与归档键使用的路径辅助函数
package fileurl

import (
	"os"
	"path/filepath"
	"strings"
)

// IsExist determines if the given path exists
// IsExist 判断所给路径是否存在
func IsExist(dst string) bool {
	_, err := os.Stat(dst)
	if err != nil {
		return os.IsExist(err)
	}
	return true
}

// CreatePath creates the parent directory of dst
// CreatePath 创建 dst 的父目录
func CreatePath(dst string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(dst), perm)
}

// WriteIfAbsent writes data to dst when dst does not exist yet; it reports whether it wrote
// WriteIfAbsent 当 dst 不存在时写入数据，返回是否写入
func WriteIfAbsent(dst string, data []byte, perm os.FileMode) (bool, error) {
	if IsExist(dst) {
		return false, nil
	}
	if err := CreatePath(dst, os.ModePerm); err != nil {
		return false, err
	}
	if err := os.WriteFile(dst, data, perm); err != nil {
		return false, err
	}
	return true, nil
}

// PathSuffixCheckAdd appends suffix to path when path is non-empty and lacks it
// PathSuffixCheckAdd 当路径非空且不以 suffix 结尾时追加 suffix
func PathSuffixCheckAdd(path string, suffix string) string {
	if path == "" || strings.HasSuffix(path, suffix) {
		return path
	}
	return path + suffix
}

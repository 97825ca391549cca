package local_fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/haierkeys/doc-history-service/pkg/fileurl"

	"github.com/pkg/errors"
)

type Config struct {
	SavePath   string `yaml:"save-path" default:"storage/archive"`
	CustomPath string `yaml:"custom-path"`
}

type LocalFS struct {
	Config *Config
}

// NewClient 创建本地文件存储实例
func NewClient(conf *Config) (*LocalFS, error) {
	if conf.SavePath == "" {
		return nil, errors.New("local_fs: save path is required")
	}
	return &LocalFS{Config: conf}, nil
}

func (p *LocalFS) objectKey(key string) string {
	return fileurl.PathSuffixCheckAdd(p.Config.CustomPath, "/") + key
}

func (p *LocalFS) fullPath(key string) string {
	return filepath.Join(p.Config.SavePath, filepath.FromSlash(key))
}

// Put writes content to SavePath/CustomPath/key, creating directories as needed
// Put 将内容写入 SavePath/CustomPath/key，按需创建目录
func (p *LocalFS) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key = p.objectKey(key)
	dst := p.fullPath(key)
	if err := fileurl.CreatePath(dst, 0755); err != nil {
		return "", errors.Wrap(err, "local_fs")
	}
	if err := os.WriteFile(dst, content, 0644); err != nil {
		return "", errors.Wrap(err, "local_fs")
	}
	return key, nil
}

// Delete 删除文件，文件不存在时不报错
func (p *LocalFS) Delete(ctx context.Context, key string) error {
	dst := p.fullPath(p.objectKey(key))
	if !fileurl.IsExist(dst) {
		return nil
	}
	return errors.Wrap(os.Remove(dst), "local_fs")
}

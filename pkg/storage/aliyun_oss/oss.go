package aliyun_oss

import (
	"bytes"
	"context"

	"github.com/haierkeys/doc-history-service/pkg/fileurl"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"
)

type Config struct {
	Endpoint        string `yaml:"endpoint"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
}

type OSS struct {
	Client *oss.Client
	Bucket *oss.Bucket
	Config *Config
}

// NewClient 创建阿里云 OSS 存储实例
func NewClient(conf *Config) (*OSS, error) {
	client, err := oss.New(conf.Endpoint, conf.AccessKeyID, conf.AccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "aliyun_oss")
	}
	bucket, err := client.Bucket(conf.BucketName)
	if err != nil {
		return nil, errors.Wrap(err, "aliyun_oss")
	}
	return &OSS{Client: client, Bucket: bucket, Config: conf}, nil
}

func (p *OSS) objectKey(key string) string {
	return fileurl.PathSuffixCheckAdd(p.Config.CustomPath, "/") + key
}

// Put 上传内容
func (p *OSS) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	key = p.objectKey(key)
	err := p.Bucket.PutObject(key, bytes.NewReader(content), oss.ContentType(contentType), oss.WithContext(ctx))
	if err != nil {
		return "", errors.Wrap(err, "aliyun_oss")
	}
	return key, nil
}

// Delete 删除对象
func (p *OSS) Delete(ctx context.Context, key string) error {
	return errors.Wrap(p.Bucket.DeleteObject(p.objectKey(key), oss.WithContext(ctx)), "aliyun_oss")
}

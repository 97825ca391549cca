package aws_s3

import (
	"bytes"
	"context"

	"github.com/haierkeys/doc-history-service/pkg/fileurl"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
}

// S3 talks to any S3 compatible endpoint; R2 and MinIO reuse it with different client options
// S3 访问任意兼容 S3 的端点，R2 与 MinIO 通过不同的客户端选项复用它
type S3 struct {
	S3Client *s3.Client
	Config   *Config
	name     string
	logger   *zap.Logger
}

// Option 配置选项函数类型
type Option func(*S3)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithName sets the backend name used in wrapped errors and logs
// WithName 设置错误包装与日志中使用的后端名称
func WithName(name string) Option {
	return func(s *S3) {
		s.name = name
	}
}

// NewClient 创建 S3 存储实例
func NewClient(ctx context.Context, conf *Config, opts ...Option) (*S3, error) {
	return New(ctx, conf, nil, opts...)
}

// New builds the client; clientOpt adjusts the endpoint for S3 compatible services
// New 创建客户端，clientOpt 用于为兼容 S3 的服务调整端点
func New(ctx context.Context, conf *Config, clientOpt func(*s3.Options), opts ...Option) (*S3, error) {
	s := &S3{Config: conf, name: "aws_s3", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKeyID, conf.AccessKeySecret, "")),
		config.WithRegion(conf.Region),
	)
	if err != nil {
		return nil, errors.Wrap(err, s.name)
	}

	s.S3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if clientOpt != nil {
			clientOpt(o)
		}
	})
	return s, nil
}

func (p *S3) objectKey(key string) string {
	return fileurl.PathSuffixCheckAdd(p.Config.CustomPath, "/") + key
}

// Put 上传内容
func (p *S3) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	key = p.objectKey(key)

	_, err := p.S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrap(err, p.name)
	}

	p.logger.Debug("object stored",
		zap.String("backend", p.name),
		zap.String("bucket", p.Config.BucketName),
		zap.String("key", key),
		zap.Int("size", len(content)))
	return key, nil
}

// Delete 删除对象
func (p *S3) Delete(ctx context.Context, key string) error {
	_, err := p.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(p.objectKey(key)),
	})
	return errors.Wrap(err, p.name)
}

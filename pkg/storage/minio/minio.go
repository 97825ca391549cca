package minio

import (
	"context"

	"github.com/haierkeys/doc-history-service/pkg/storage/aws_s3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Config struct {
	BucketName      string `yaml:"bucket-name"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
}

// NewClient 创建 MinIO 存储实例，使用 path-style 寻址
func NewClient(ctx context.Context, conf *Config, opts ...aws_s3.Option) (*aws_s3.S3, error) {
	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}
	return aws_s3.New(ctx, &aws_s3.Config{
		Region:          region,
		BucketName:      conf.BucketName,
		AccessKeyID:     conf.AccessKeyID,
		AccessKeySecret: conf.AccessKeySecret,
		CustomPath:      conf.CustomPath,
	}, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(conf.Endpoint)
	}, append(opts, aws_s3.WithName("minio"))...)
}

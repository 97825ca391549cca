package cloudflare_r2

import (
	"context"
	"fmt"

	"github.com/haierkeys/doc-history-service/pkg/storage/aws_s3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Config struct {
	AccountID       string `yaml:"account-id"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
}

// Endpoint returns the account scoped R2 endpoint
// Endpoint 返回账户对应的 R2 端点
func Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

// NewClient 创建 Cloudflare R2 存储实例
func NewClient(ctx context.Context, conf *Config, opts ...aws_s3.Option) (*aws_s3.S3, error) {
	endpoint := Endpoint(conf.AccountID)
	return aws_s3.New(ctx, &aws_s3.Config{
		Region:          "auto",
		BucketName:      conf.BucketName,
		AccessKeyID:     conf.AccessKeyID,
		AccessKeySecret: conf.AccessKeySecret,
		CustomPath:      conf.CustomPath,
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	}, append(opts, aws_s3.WithName("cloudflare_r2"))...)
}

package replica

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
)

// tagMetaKey exposes the GCM tag as object metadata so it can be checked
// without downloading the payload.
const tagMetaKey = "zk-tag"

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Options configure NewS3Backend. Empty keys fall back to the default
// AWS credential chain; Endpoint targets S3 compatible stores like MinIO.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	AccessKey string
	SecretKey string
}

// S3Backend keeps one JSON object per EncryptedObject under a key prefix.
type S3Backend struct {
	client s3API
	bucket string
	prefix string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

func NewS3Backend(ctx context.Context, o S3Options) (*S3Backend, error) {
	if o.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return newS3Backend(client, o.Bucket, o.Prefix), nil
}

func newS3Backend(client s3API, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}
}

func (b *S3Backend) key(id string) string {
	return b.prefix + id + ".json"
}

func (b *S3Backend) Put(ctx context.Context, id string, obj cryptox.EncryptedObject) error {
	body, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(id)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{tagMetaKey: obj.Tag},
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (b *S3Backend) Get(ctx context.Context, id string) (cryptox.EncryptedObject, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return cryptox.EncryptedObject{}, fmt.Errorf("object %s: %w", id, common.ErrorNotFound)
		}
		return cryptox.EncryptedObject{}, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return cryptox.EncryptedObject{}, fmt.Errorf("failed to read object: %w", err)
	}
	var obj cryptox.EncryptedObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return cryptox.EncryptedObject{}, fmt.Errorf("object %s: %w", id, common.ErrDecryptionFailed)
	}
	return obj, nil
}

func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix + prefix),
	})

	var ids []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, o := range page.Contents {
			k := aws.ToString(o.Key)
			if !strings.HasSuffix(k, ".json") {
				continue
			}
			ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(k, b.prefix), ".json"))
		}
	}
	return ids, nil
}

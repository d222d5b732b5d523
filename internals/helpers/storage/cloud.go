package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"
)

/* =======================================================================
   Aliyun OSS
======================================================================= */

type OSSStorage struct {
	Bucket     *oss.Bucket
	Endpoint   string
	BucketName string
	PublicBase string
}

func NewOSSStorage(endpoint, ak, sk, bucketName, publicBase string) (*OSSStorage, error) {
	if endpoint == "" || ak == "" || sk == "" || bucketName == "" {
		return nil, fmt.Errorf("missing env: ALI_OSS_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET")
	}
	client, err := oss.New(endpoint, ak, sk)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}
	if loc, err := client.GetBucketLocation(bucketName); err != nil {
		if se, ok := err.(oss.ServiceError); ok && se.StatusCode == 403 {
			zap.L().Warn("oss location check skipped", zap.String("bucket", bucketName))
		} else {
			return nil, fmt.Errorf("verify bucket: %w", err)
		}
	} else {
		zap.L().Info("oss bucket ready", zap.String("bucket", bucketName), zap.String("location", loc))
	}
	return &OSSStorage{Bucket: bkt, Endpoint: endpoint, BucketName: bucketName, PublicBase: publicBase}, nil
}

func (s *OSSStorage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	return s.Bucket.PutObject(key, bytes.NewReader(body),
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	)
}

func (s *OSSStorage) Delete(ctx context.Context, key string) error {
	return s.Bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (s *OSSStorage) PublicURL(key string) string {
	if base := strings.TrimSpace(s.PublicBase); strings.HasPrefix(base, "http") {
		return strings.TrimRight(base, "/") + "/" + key
	}
	end := strings.TrimPrefix(strings.TrimPrefix(s.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.BucketName, end, key)
}

/* =======================================================================
   AWS S3
======================================================================= */

type S3Storage struct {
	Client     *s3.S3
	Bucket     string
	Region     string
	PublicBase string
}

func NewS3Storage(region, bucket, ak, sk, publicBase string) (*S3Storage, error) {
	if region == "" || bucket == "" {
		return nil, fmt.Errorf("missing env: AWS_S3_REGION/AWS_S3_BUCKET")
	}
	cfg := &aws.Config{Region: aws.String(region)}
	if ak != "" && sk != "" {
		cfg.Credentials = credentials.NewStaticCredentials(ak, sk, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return &S3Storage{Client: s3.New(sess), Bucket: bucket, Region: region, PublicBase: publicBase}, nil
}

func (s *S3Storage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	return err
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Storage) PublicURL(key string) string {
	if base := strings.TrimSpace(s.PublicBase); strings.HasPrefix(base, "http") {
		return strings.TrimRight(base, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Bucket, s.Region, key)
}

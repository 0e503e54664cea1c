package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Store keeps images as objects under prefix in an S3 bucket.
type S3Store struct {
	s3     *s3.S3
	bucket string
	prefix string
}

func NewS3Store(region, bucket, prefix string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 session: %w", err)
	}
	return &S3Store{s3: s3.New(sess), bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Store) publicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

func (s *S3Store) Owns(imageURL string) bool {
	base := s.publicURL("")
	if s.prefix != "" {
		base = s.publicURL(s.prefix + "/")
	}
	return underBase(imageURL, base)
}

func (s *S3Store) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	name, err := NameFromURL(name)
	if err != nil {
		return "", err
	}
	key := s.key(name)
	_, err = s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return s.publicURL(key), nil
}

// Delete checks for the object first; S3 reports success when deleting a
// missing key.
func (s *S3Store) Delete(ctx context.Context, imageURL string) error {
	name, err := NameFromURL(imageURL)
	if err != nil {
		return err
	}
	key := s.key(name)
	_, err = s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return ErrNotExist
		}
		return err
	}
	_, err = s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Store) List(ctx context.Context) ([]string, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		in.Prefix = aws.String(s.prefix + "/")
	}
	var names []string
	err := s.s3.ListObjectsV2PagesWithContext(ctx, in, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			name := path.Base(aws.StringValue(obj.Key))
			if name == "" || strings.HasSuffix(aws.StringValue(obj.Key), "/") {
				continue
			}
			names = append(names, name)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey
}

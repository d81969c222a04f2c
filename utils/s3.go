package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ImageStore offloads captured meal photos to S3 so records carry a short
// URL instead of a multi-hundred-kilobyte data URI.
type ImageStore struct {
	client *s3.Client
	bucket string
	cdnURL string
}

// NewImageStore returns nil (offload disabled) when S3_BUCKET is unset;
// records then keep their data URIs.
func NewImageStore(ctx context.Context) (*ImageStore, error) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		return nil, nil
	}

	region := os.Getenv("S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &ImageStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		cdnURL: strings.TrimRight(os.Getenv("CLOUDFRONT_URL"), "/"),
	}, nil
}

// UploadMealPhoto stores a data-URI photo under meal-photos/ and returns
// its public URL.
func (m *ImageStore) UploadMealPhoto(ctx context.Context, dataURI string) (string, error) {
	parts := strings.SplitN(dataURI, ",", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "data:") {
		return "", fmt.Errorf("invalid data URI")
	}

	meta := strings.TrimPrefix(parts[0], "data:")          // "image/jpeg;base64"
	contentType := strings.SplitN(meta, ";", 2)[0]          // "image/jpeg"

	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	ext := ".jpg"
	if contentType != "image/jpeg" && contentType != "image/jpg" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		} else if sub := strings.SplitN(contentType, "/", 2); len(sub) == 2 {
			ext = "." + sub[1]
		}
	}

	key := fmt.Sprintf("meal-photos/%d%s", time.Now().UnixNano(), ext)

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}

	if m.cdnURL != "" {
		return fmt.Sprintf("%s/%s", m.cdnURL, key), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", m.bucket, key), nil
}

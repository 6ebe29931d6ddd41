// Package storage archives run results to S3-compatible object storage.
// The archive is optional: when AWS_ENDPOINT is unset no client is
// created and archiving is skipped.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"insiderkg/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func NewS3Client(ctx context.Context) *s3.Client {
	endpoint := util.GetEnvString("AWS_ENDPOINT", "")
	if endpoint == "" {
		return nil
	}
	region := util.GetEnv("AWS_REGION")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

const resultPrefix = "results/"

// ResultKey returns the object key under which the result document with
// the given id is archived.
func ResultKey(id string) string {
	return resultPrefix + id + ".json"
}

func resultID(key string) string {
	id := strings.TrimPrefix(key, resultPrefix)
	return strings.TrimSuffix(id, ".json")
}

// PutResult uploads a JSON result document under results/<id>.json and
// returns the stored object key.
func PutResult(ctx context.Context, client *s3.Client, id string, data []byte) (string, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	objectKey := ResultKey(id)
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload result to S3: %w", err)
	}
	return objectKey, nil
}

func GetResult(ctx context.Context, client *s3.Client, objectKey string) ([]byte, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get result from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read result contents: %w", err)
	}
	return buf.Bytes(), nil
}

// ListResults returns the ids of all archived result documents. Ids are
// object keys with the results prefix and .json suffix stripped, so they
// can be fed back to ResultKey.
func ListResults(ctx context.Context, client *s3.Client) ([]string, error) {
	bucket := util.GetEnv("AWS_BUCKET")

	var ids []string
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(resultPrefix),
	}
	for {
		listOutput, err := client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list archived results: %w", err)
		}
		for _, obj := range listOutput.Contents {
			if obj.Key != nil && strings.HasSuffix(*obj.Key, ".json") {
				ids = append(ids, resultID(*obj.Key))
			}
		}
		if listOutput.IsTruncated != nil && *listOutput.IsTruncated {
			listInput.ContinuationToken = listOutput.NextContinuationToken
		} else {
			break
		}
	}
	return ids, nil
}

package s3

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/operalab/commesse/internal/config"
	"github.com/operalab/commesse/internal/storage/domain"
	"github.com/operalab/commesse/pkg/slugify"
	"go.uber.org/zap"
)

// Store keeps attachments in an S3-compatible bucket under
// voices/<voiceID>/<slug>. PutObject on an existing key overwrites and
// DeleteObject on an absent key succeeds, which matches the local
// backend's semantics without extra work.
type Store struct {
	client    *awss3.Client
	bucket    string
	publicURL string
	log       *zap.Logger
}

func New(cfg config.StorageConfig, log *zap.Logger) (*Store, error) {
	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		cfg.S3AccessKeyID,
		cfg.S3SecretAccessKey,
		"",
	))

	opts := awss3.Options{
		Region:           cfg.S3Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
		opts.UsePathStyle = true
	}

	return &Store{
		client:    awss3.New(opts),
		bucket:    cfg.S3Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		log:       log.Named("storage.s3"),
	}, nil
}

func (s *Store) Put(ctx context.Context, voiceID, filename string, r io.Reader) (domain.StoredFile, error) {
	if strings.TrimSpace(voiceID) == "" {
		return domain.StoredFile{}, domain.ErrMissingVoiceID
	}
	name := slugify.Filename(filename)
	if name == "" {
		return domain.StoredFile{}, domain.ErrMissingFile
	}

	key := objectKey(voiceID, name)
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return domain.StoredFile{}, domain.Fault("put", err)
	}

	return domain.StoredFile{
		FileURL:  s.publicURL + "/voices/" + voiceID + "/" + name,
		FileName: name,
	}, nil
}

func (s *Store) Delete(ctx context.Context, voiceID, fileName string) error {
	if strings.TrimSpace(voiceID) == "" {
		return domain.ErrMissingVoiceID
	}
	name := slugify.Filename(fileName)
	if name == "" {
		return domain.ErrMissingFile
	}

	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(voiceID, name)),
	})
	if err != nil {
		return domain.Fault("delete", err)
	}
	return nil
}

func objectKey(voiceID, name string) string {
	return "voices/" + voiceID + "/" + name
}

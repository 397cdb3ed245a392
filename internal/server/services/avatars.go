package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/common"
	sc "github.com/dmitrijs2005/webtoz/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const avatarUploadValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarUpload tells the client where to PUT the image and what URL to
// store in its profile afterwards.
type AvatarUpload struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AvatarService hands out presigned S3 (or MinIO) upload URLs for avatars.
type AvatarService struct {
	config *sc.Config
	now    func() time.Time
}

func NewAvatarService(config *sc.Config) *AvatarService {
	return &AvatarService{config: config, now: time.Now}
}

// Enabled reports whether a bucket is configured.
func (s *AvatarService) Enabled() bool {
	return s.config.S3Bucket != ""
}

func avatarKey(userID, ext string) string {
	return fmt.Sprintf("avatars/%s/%v%s", userID, uuid.New(), ext)
}

func (s *AvatarService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(strings.TrimRight(s.config.S3BaseEndpoint, "/"))
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a short-lived PUT URL for a new avatar of userID.
func (s *AvatarService) PresignUpload(ctx context.Context, userID, contentType string) (*AvatarUpload, error) {
	ext, ok := avatarExtensions[strings.ToLower(contentType)]
	if !ok {
		return nil, &common.ValidationError{Fields: []common.FieldError{
			{Field: "contentType", Message: "Avatar must be a JPEG, PNG, GIF or WebP image"},
		}}
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("avatar upload: %w", err)
	}

	bucket := s.config.S3Bucket
	key := avatarKey(userID, ext)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(avatarUploadValidity))
	if err != nil {
		return nil, fmt.Errorf("avatar upload: %w", err)
	}

	return &AvatarUpload{
		UploadURL: req.URL,
		Key:       key,
		PublicURL: s.publicURL(key),
		ExpiresAt: s.now().UTC().Add(avatarUploadValidity),
	}, nil
}

func (s *AvatarService) publicURL(key string) string {
	base := s.config.S3PublicURL
	if base == "" {
		base = s.config.S3BaseEndpoint
	}
	return strings.TrimRight(base, "/") + "/" + s.config.S3Bucket + "/" + key
}

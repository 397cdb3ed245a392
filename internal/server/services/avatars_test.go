package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/webtoz/internal/common"
	sc "github.com/dmitrijs2005/webtoz/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAvatarSvc() *AvatarService {
	return NewAvatarService(&sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000/",
		S3Bucket:       "avatars",
	})
}

func stubS3(t *testing.T, put func(in *s3.PutObjectInput) (*v4.PresignedHTTPRequest, error)) *string {
	t.Helper()
	origLoad, origNewS3, origNewPre, origPut := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
	})

	var endpoint string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		endpoint = aws.ToString(opts.BaseEndpoint)
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return put(in)
	}
	return &endpoint
}

func TestPresignUpload_Success(t *testing.T) {
	svc := newAvatarSvc()
	var gotKey, gotType string
	endpoint := stubS3(t, func(in *s3.PutObjectInput) (*v4.PresignedHTTPRequest, error) {
		gotKey, gotType = aws.ToString(in.Key), aws.ToString(in.ContentType)
		assert.Equal(t, "avatars", aws.ToString(in.Bucket))
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/avatars/signed"}, nil
	})

	up, err := svc.PresignUpload(context.Background(), "u1", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000", *endpoint)
	assert.Equal(t, "http://127.0.0.1:9000/avatars/signed", up.UploadURL)
	assert.Equal(t, gotKey, up.Key)
	assert.Equal(t, "image/png", gotType)
	assert.True(t, strings.HasPrefix(up.Key, "avatars/u1/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "http://127.0.0.1:9000/avatars/"+up.Key, up.PublicURL)
}

func TestPresignUpload_PublicURLOverride(t *testing.T) {
	svc := newAvatarSvc()
	svc.config.S3PublicURL = "https://cdn.example.com/"
	stubS3(t, func(in *s3.PutObjectInput) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "signed"}, nil
	})

	up, err := svc.PresignUpload(context.Background(), "u1", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/"+up.Key, up.PublicURL)
}

func TestPresignUpload_Errors(t *testing.T) {
	svc := newAvatarSvc()

	_, err := svc.PresignUpload(context.Background(), "u1", "application/pdf")
	assert.ErrorIs(t, err, common.ErrValidation)

	stubS3(t, func(in *s3.PutObjectInput) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-put-fail")
	})
	_, err = svc.PresignUpload(context.Background(), "u1", "image/png")
	assert.ErrorContains(t, err, "presign-put-fail")

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = svc.PresignUpload(context.Background(), "u1", "image/png")
	assert.ErrorContains(t, err, "load-fail")
}

func TestAvatarService_Enabled(t *testing.T) {
	assert.True(t, newAvatarSvc().Enabled())
	assert.False(t, NewAvatarService(&sc.Config{}).Enabled())
}

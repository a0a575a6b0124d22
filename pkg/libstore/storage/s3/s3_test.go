package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "missing bucket", config: Config{}, wantErr: true},
		{name: "bucket only", config: Config{Bucket: "blocks"}},
		{name: "access key without secret", config: Config{Bucket: "blocks", AccessKeyID: "id"}, wantErr: true},
		{name: "bad sse algorithm", config: Config{Bucket: "blocks", EnableSSE: true, SSEAlgorithm: "rot13"}, wantErr: true},
		{name: "kms", config: Config{Bucket: "blocks", EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "us-east-1", tt.config.Region)
		})
	}
}

func TestConfig_ValidateDefaultsSSEAlgorithm(t *testing.T) {
	c := Config{Bucket: "blocks", EnableSSE: true}
	require.NoError(t, c.Validate())
	assert.Equal(t, "AES256", c.SSEAlgorithm)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &types.NoSuchKey{})))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

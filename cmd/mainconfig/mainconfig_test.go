package mainconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/autosales-assistant/internal/config"
)

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	cfg := &appconfig.Config{
		AWSRegion:          "us-west-2",
		AWSAccessKeyID:     "AKIDEXAMPLE",
		AWSSecretAccessKey: "secret",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
}

func TestNewBedrockRuntimeClientEndpointOverride(t *testing.T) {
	cfg := &appconfig.Config{AWSRegion: "us-east-1", AWSEndpointOverride: "http://localhost:4566"}
	client := NewBedrockRuntimeClient(aws.Config{Region: "us-east-1"}, cfg)

	assert.Equal(t, "http://localhost:4566", aws.ToString(client.Options().BaseEndpoint))
}

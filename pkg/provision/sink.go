package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rs/zerolog"
)

// SSMSink materializes registry outputs as SSM parameters so consumers
// outside the synthesis run can resolve them by path.
type SSMSink struct {
	client *ssm.Client
	logger zerolog.Logger
}

// NewSSMSink creates a sink for the given region using the default
// credential chain.
func NewSSMSink(ctx context.Context, region string, logger zerolog.Logger) (*SSMSink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return &SSMSink{
		client: ssm.NewFromConfig(cfg),
		logger: logger.With().Str("component", "ssm-sink").Logger(),
	}, nil
}

// Put writes one parameter, overwriting any previous value at the path.
func (s *SSMSink) Put(ctx context.Context, path, value string) error {
	return s.put(ctx, path, value, ssmtypes.ParameterTypeString)
}

// PutSecure writes one parameter as a SecureString so SSM encrypts the
// value at rest.
func (s *SSMSink) PutSecure(ctx context.Context, path, value string) error {
	return s.put(ctx, path, value, ssmtypes.ParameterTypeSecureString)
}

func (s *SSMSink) put(ctx context.Context, path, value string, ptype ssmtypes.ParameterType) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(path),
		Value:     aws.String(value),
		Type:      ptype,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter %s: %w", path, err)
	}
	s.logger.Debug().Str("path", path).Str("type", string(ptype)).Msg("Wrote parameter")
	return nil
}

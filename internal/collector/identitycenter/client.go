package identitycenter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
)

// Config holds the AWS IAM Identity Center connection settings.
type Config struct {
	Region          string `yaml:"region"`
	Profile         string `yaml:"profile"`
	IdentityStoreID string `yaml:"identity_store_id"`
	InstanceArn     string `yaml:"sso_instance_arn"`
}

// Client talks to the identity store and SSO admin APIs. The SDK's built-in
// retrier is disabled; the resilience executor owns the retry policy.
type Client struct {
	ids             *identitystore.Client
	sso             *ssoadmin.Client
	identityStoreID string
	instanceArn     string
}

// New builds a client from the ambient AWS credential chain.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	noRetry := func(o *identitystore.Options) { o.Retryer = aws.NopRetryer{} }
	noSSORetry := func(o *ssoadmin.Options) { o.Retryer = aws.NopRetryer{} }

	return &Client{
		ids:             identitystore.NewFromConfig(awsCfg, noRetry),
		sso:             ssoadmin.NewFromConfig(awsCfg, noSSORetry),
		identityStoreID: cfg.IdentityStoreID,
		instanceArn:     cfg.InstanceArn,
	}, nil
}

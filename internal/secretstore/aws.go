// internal/secretstore/aws.go
//
// AWS Secrets Manager backend.
//
// Each secret group is one Secrets Manager secret whose SecretString holds a
// JSON object.  Secrets stored as SecretBinary are rejected outright with
// ErrUnsupportedFormat and never partially decoded.
//
// Error mapping
// -------------
//   - ResourceNotFoundException → ErrNotFound
//   - AccessDeniedException     → ErrAccessDenied
//   - anything else             → returned unchanged

package secretstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

// SecretsManagerAPI is the subset of the Secrets Manager client the backend
// calls.  Tests substitute a fake.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// AWSOptions configures NewAWS.  Empty credential fields fall back to the
// SDK default chain (env, shared config, instance role).
type AWSOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Endpoint        string // LocalStack or other test endpoints.
}

// DefaultRegion is used when AWSOptions.Region is empty.
const DefaultRegion = "us-east-1"

// AWS implements Backend, RawReader, and Writer.
type AWS struct {
	api    SecretsManagerAPI
	region string
}

// AWSOption customises NewAWS.
type AWSOption func(*AWS)

// WithSecretsManagerClient injects api instead of building an SDK client.
func WithSecretsManagerClient(api SecretsManagerAPI) AWSOption {
	return func(a *AWS) { a.api = api }
}

// NewAWS builds the backend.  Loading the SDK configuration is the only step
// that can fail.
func NewAWS(ctx context.Context, opts AWSOptions, optFns ...AWSOption) (*AWS, error) {
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}

	a := &AWS{region: region}
	for _, fn := range optFns {
		fn(a)
	}
	if a.api != nil {
		return a, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*secretsmanager.Options)
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	a.api = secretsmanager.NewFromConfig(cfg, clientOpts...)
	return a, nil
}

func (a *AWS) Name() string { return "aws-secretsmanager" }

// Region reports the region the client talks to.
func (a *AWS) Region() string { return a.region }

// FetchGroup performs one GetSecretValue call.
func (a *AWS) FetchGroup(ctx context.Context, group string) (map[string]string, error) {
	raw, err := a.FetchRaw(ctx, group)
	if err != nil {
		return nil, err
	}
	return stringValues(group, raw)
}

// FetchRaw performs one GetSecretValue call and keeps the JSON value types.
func (a *AWS) FetchRaw(ctx context.Context, group string) (RawGroup, error) {
	out, err := a.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(group),
	})
	if err != nil {
		return nil, translateAWS(err, group)
	}
	if out.SecretString == nil {
		return nil, groupErr(ErrUnsupportedFormat, group, errors.New("binary secrets are not supported"))
	}
	return decodeRaw(group, *out.SecretString)
}

// PutRaw updates the secret, creating it when it does not exist yet.
func (a *AWS) PutRaw(ctx context.Context, group string, values RawGroup) (bool, error) {
	body, err := json.Marshal(values)
	if err != nil {
		return false, fmt.Errorf("encode group %s: %w", group, err)
	}

	_, err = a.api.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(group),
		SecretString: aws.String(string(body)),
	})
	if err == nil {
		return false, nil
	}
	if err = translateAWS(err, group); !errors.Is(err, ErrNotFound) {
		return false, err
	}

	_, err = a.api.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(group),
		SecretString: aws.String(string(body)),
	})
	if err != nil {
		return false, translateAWS(err, group)
	}
	return true, nil
}

// translateAWS maps SDK errors onto the package sentinels.
func translateAWS(err error, group string) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return groupErr(ErrNotFound, group, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException":
			return groupErr(ErrNotFound, group, err)
		case "AccessDeniedException", "AccessDenied":
			return groupErr(ErrAccessDenied, group, err)
		}
	}
	return err
}

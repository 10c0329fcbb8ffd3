package secrets

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/docbox-nz/docbox/internal/docerr"
)

// AWSClient is the subset of the secretsmanager SDK client docbox uses,
// narrowed so tests can supply a stub.
type AWSClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// AWS is a Manager backed by AWS Secrets Manager.
type AWS struct {
	client AWSClient
}

// NewAWS wraps an existing secretsmanager client.
func NewAWS(client AWSClient) *AWS {
	return &AWS{client: client}
}

func (a *AWS) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", docerr.NotFound("secret not found")
		}
		return "", docerr.Dependency("failed to load secret", err)
	}
	if out.SecretString == nil {
		return "", docerr.Dependency("secret has no string value", nil)
	}
	return *out.SecretString, nil
}

func (a *AWS) SetSecret(ctx context.Context, name, value string) error {
	_, err := a.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(value),
	})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return docerr.Dependency("failed to set secret", err)
	}

	_, err = a.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(value),
	})
	if err != nil {
		return docerr.Dependency("failed to create secret", err)
	}
	return nil
}

func (a *AWS) HasSecret(ctx context.Context, name string) (bool, error) {
	_, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, docerr.Dependency("failed to check secret", err)
}

func (a *AWS) DeleteSecret(ctx context.Context, name string, force bool) error {
	input := &secretsmanager.DeleteSecretInput{SecretId: aws.String(name)}
	if force {
		input.ForceDeleteWithoutRecovery = aws.Bool(true)
	}
	_, err := a.client.DeleteSecret(ctx, input)
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return docerr.Dependency("failed to delete secret", err)
	}
	return nil
}

var _ Manager = (*AWS)(nil)

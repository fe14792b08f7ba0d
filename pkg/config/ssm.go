package config

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
)

// ParameterReader is the subset of the SSM client used to read secrets
type ParameterReader interface {
	GetParameterWithContext(aws.Context, *ssm.GetParameterInput, ...request.Option) (*ssm.GetParameterOutput, error)
}

// SSMSecrets reads SecureString parameters
type SSMSecrets struct {
	ssm ParameterReader
}

// NewSSMSecrets returns a secret getter backed by pr
func NewSSMSecrets(pr ParameterReader) *SSMSecrets {
	return &SSMSecrets{ssm: pr}
}

// NewSSMSecretsFromEnv starts an AWS session in the function's region
func NewSSMSecretsFromEnv() *SSMSecrets {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	return NewSSMSecrets(ssm.New(sess, &aws.Config{Region: aws.String(os.Getenv("AWS_REGION"))}))
}

// GetSecret returns the decrypted value of a parameter
func (s *SSMSecrets) GetSecret(ctx context.Context, name string) (string, error) {

	out, err := s.ssm.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("could not get parameter %v: %w", name, err)
	}
	if out.Parameter == nil || aws.StringValue(out.Parameter.Value) == "" {
		return "", fmt.Errorf("parameter %v has no value", name)
	}
	return aws.StringValue(out.Parameter.Value), nil
}

// Package secrets generates random credentials and stores them in AWS
// Secrets Manager.
package secrets

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/base64"
	"fmt"
	"math/rand/v2"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/google/uuid"

	"github.com/stackbench-io/stackbench/internal/awsconfig"
	"github.com/stackbench-io/stackbench/internal/logging"
)

// Generated keys are between 32 and 1024 bytes, matching what the
// consuming services accept.
const (
	minKeyBytes = 32
	maxKeyBytes = 1024
)

// API is the slice of the Secrets Manager client the provisioner uses.
type API interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// ClientProvider returns a Secrets Manager client bound to a region.
type ClientProvider func(ctx context.Context, region string) (API, error)

// AWSClients returns a ClientProvider backed by real clients.
func AWSClients(loader *awsconfig.Loader) ClientProvider {
	return func(ctx context.Context, region string) (API, error) {
		cfg, err := loader.Load(ctx, region)
		if err != nil {
			return nil, err
		}
		return secretsmanager.NewFromConfig(cfg), nil
	}
}

// StoreError reports a failed secret-store operation. Fixture setup aborts
// on it before any dependent stack is created.
type StoreError struct {
	Region string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("secret store in %s: %v", e.Region, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Handle is a reference to a stored credential. Plaintext is set only for
// secrets generated in this run; borrowed secrets carry the ARN alone, and
// only the ARN is ever passed downstream.
type Handle struct {
	Plaintext string
	ARN       string
}

// Generated reports whether the secret was created by this run.
func (h Handle) Generated() bool { return h.Plaintext != "" }

// UseExisting returns a handle to a pre-existing secret without generating
// or storing anything.
func UseExisting(arn string) Handle {
	return Handle{ARN: arn}
}

// Provisioner creates and stores random binary keys.
type Provisioner struct {
	clients ClientProvider
	prefix  string
}

// NewProvisioner returns a Provisioner. prefix names the secrets it
// creates.
func NewProvisioner(clients ClientProvider, prefix string) *Provisioner {
	return &Provisioner{clients: clients, prefix: prefix}
}

// Provision generates a random key of random length, base64-encodes it,
// stores it in Secrets Manager and returns the encoded plaintext together
// with the secret ARN.
func (p *Provisioner) Provision(ctx context.Context, region string) (Handle, error) {
	api, err := p.clients(ctx, region)
	if err != nil {
		return Handle{}, &StoreError{Region: region, Err: err}
	}

	key := make([]byte, minKeyBytes+rand.IntN(maxKeyBytes-minKeyBytes+1))
	if _, err := cryptorand.Read(key); err != nil {
		return Handle{}, &StoreError{Region: region, Err: err}
	}
	encoded := base64.StdEncoding.EncodeToString(key)

	name := fmt.Sprintf("%s-%s", p.prefix, uuid.NewString())
	out, err := api.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(encoded),
	})
	if err != nil {
		return Handle{}, &StoreError{Region: region, Err: err}
	}

	logging.Info("stored generated secret", "name", name, "region", region)
	return Handle{Plaintext: encoded, ARN: aws.ToString(out.ARN)}, nil
}

// Delete removes a secret created by this run. It is best-effort teardown:
// the error is returned for reporting but callers do not abort on it.
func (p *Provisioner) Delete(ctx context.Context, region, arn string) error {
	api, err := p.clients(ctx, region)
	if err != nil {
		return &StoreError{Region: region, Err: err}
	}
	_, err = api.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(arn),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		logging.Warn("secret deletion failed", "arn", arn, "region", region, "error", err)
		return &StoreError{Region: region, Err: err}
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"path"

	"dagger/tablechat/internal/dagger"
)

// bucket holds the credentials of the S3-compatible release bucket.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyID     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// sync copies dir into the bucket below prefix.
func (b bucket) sync(ctx context.Context, dir *dagger.Directory, prefix string) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}

	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	_, err = dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", dir).
		WithWorkdir("/artifacts").
		WithExec([]string{
			"aws", "s3", "sync", ".",
			"s3://" + path.Join(name, prefix),
			"--endpoint-url", endpoint,
		}).
		Sync(ctx)
	if err != nil {
		return fmt.Errorf("uploading to %s: %w", prefix, err)
	}
	return nil
}

// withChecksums adds a SHA256SUMS file covering every binary in dir.
func withChecksums(dir *dagger.Directory) *dagger.Directory {
	sums := dag.Container().
		From("alpine:3").
		WithDirectory("/artifacts", dir).
		WithWorkdir("/artifacts").
		WithExec([]string{"sh", "-c", "find . -type f -name 'tablechat*' | sort | xargs sha256sum > SHA256SUMS"}).
		File("/artifacts/SHA256SUMS")

	return dir.WithFile("SHA256SUMS", sums)
}

// Release builds versioned binaries with checksums and uploads them under the
// version prefix, and under "latest" unless prerelease is set
func (t *Tablechat) Release(
	ctx context.Context,

	// Version string (e.g., "v0.3.0")
	version string,

	// Git commit SHA
	commit string,

	// Skip updating the "latest" prefix
	// +optional
	prerelease bool,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := withChecksums(t.BuildRelease(ctx, version, commit))
	b := bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}

	if err := b.sync(ctx, artifacts, version); err != nil {
		return artifacts, err
	}
	if prerelease {
		return artifacts, nil
	}
	return artifacts, b.sync(ctx, artifacts, "latest")
}

// Nightly builds and uploads binaries under the "nightly" prefix
func (t *Tablechat) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := withChecksums(t.BuildRelease(ctx, "nightly", commit))
	b := bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}
	return artifacts, b.sync(ctx, artifacts, "nightly")
}

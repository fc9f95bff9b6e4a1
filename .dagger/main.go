// Tablechat CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub
// actions for the tablechat CLI and server.
package main

import (
	"context"

	"dagger/tablechat/internal/dagger"
)

// Tablechat is the main module for the tablechat CI/CD pipeline
type Tablechat struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Tablechat CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", "build", "tmp", "uploads", ".tablechat", "_examples"]
	source *dagger.Directory,
) *Tablechat {
	return &Tablechat{
		Source: source,
	}
}

// goContainer returns a Go container with the project source mounted and the
// module and build caches attached. tablechat is pure Go, so CGO is off.
func (t *Tablechat) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", t.Source)
}

// Test runs the unit tests, including the ginkgo suites, via "go test"
//
// +check
func (t *Tablechat) Test(ctx context.Context) (string, error) {
	return t.goContainer().
		WithExec([]string{"go", "test", "./..."}).
		Stdout(ctx)
}

// Vet runs "go vet" over every package
//
// +check
func (t *Tablechat) Vet(ctx context.Context) (string, error) {
	return t.goContainer().
		WithExec([]string{"go", "vet", "./..."}).
		Stdout(ctx)
}

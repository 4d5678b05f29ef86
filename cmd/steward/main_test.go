package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/steward/internal/app"
	"github.com/odyssey-erp/steward/internal/session"
	_ "github.com/odyssey-erp/steward/testing"
)

func TestMainSkipsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}

func TestNewVerifier(t *testing.T) {
	assert.IsType(t, session.BcryptVerifier{}, newVerifier(&app.Config{AuthVerifier: app.VerifierBcrypt}))
	assert.IsType(t, session.PlaceholderVerifier{}, newVerifier(&app.Config{AuthVerifier: app.VerifierPlaceholder}))
}

func TestOpenRepositoryDefaultsToMemory(t *testing.T) {
	repo, closeRepo, err := openRepository(t.Context(), &app.Config{UsersBackend: app.BackendMemory}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, repo)
	closeRepo()
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/decoaromas/decoaromas-admin/internal/app"
	_ "github.com/decoaromas/decoaromas-admin/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}

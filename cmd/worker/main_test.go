package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftdesk/draftdesk/internal/app"
	_ "github.com/draftdesk/draftdesk/internal/testing/guard"
)

func TestMainSkipsInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	main()
}

package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOTPEmailTemplate(t *testing.T) {
	body, err := renderOTPEmailTemplate("348201")
	require.NoError(t, err)

	assert.Contains(t, body, "348201")
	assert.Contains(t, body, "10 minutes")
	assert.Contains(t, body, "Verify your email address")
}

func TestRenderOTPEmailTemplateEscapesCode(t *testing.T) {
	// The code is always digits in practice, but the template must not
	// trust its input
	body, err := renderOTPEmailTemplate(`<script>alert(1)</script>`)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

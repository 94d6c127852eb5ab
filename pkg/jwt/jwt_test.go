package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsalazarc/clinica-stock-api/pkg/jwt"
)

func TestGenerateParse(t *testing.T) {
	token, err := jwt.Generate("secret", 42, "clinica-stock-api", 5)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := jwt.Parse("secret", token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestParse_Invalido(t *testing.T) {
	token, err := jwt.Generate("secret", 42, "clinica-stock-api", 5)
	require.NoError(t, err)

	// firma de otro secret
	_, err = jwt.Parse("otro-secret", token)
	assert.Error(t, err)

	// token expirado
	expired, err := jwt.Generate("secret", 42, "clinica-stock-api", -5)
	require.NoError(t, err)
	_, err = jwt.Parse("secret", expired)
	assert.Error(t, err)

	// basura
	_, err = jwt.Parse("secret", "no-es-un-jwt")
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := jwt.Generate("", 42, "clinica-stock-api", 5)
	assert.Error(t, err)
	_, err = jwt.Parse("", "lo-que-sea")
	assert.Error(t, err)
}

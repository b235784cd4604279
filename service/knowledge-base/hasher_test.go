package knowledgebase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashReader(t *testing.T) {
	hash, err := HashReader(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
}

func TestHashReaderSameContentSameHash(t *testing.T) {
	h1, err := HashReader(strings.NewReader("机器学习导论"))
	require.NoError(t, err)
	h2, err := HashReader(strings.NewReader("机器学习导论"))
	require.NoError(t, err)
	h3, err := HashReader(strings.NewReader("机器学习进阶"))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

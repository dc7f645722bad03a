package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldStripsCaseAndAccents(t *testing.T) {
	assert.Equal(t, "energetico", Fold("  Energético "))
	assert.Equal(t, "sanduiche de peito de peru", Fold("SANDUÍCHE de Peito de Peru"))
	assert.Equal(t, "acai", Fold("Açaí"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("", "anything"))
	assert.True(t, Contains("joao", "João Pereira", "1ª Cia"))
	assert.True(t, Contains("1ª cia", "João Pereira", "1ª Cia"))
	assert.False(t, Contains("maria", "João Pereira", "1ª Cia"))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "61998765432", Digits("(61) 99876-5432"))
	assert.Equal(t, "", Digits("sem telefone"))
}

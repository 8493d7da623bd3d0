package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold_ComposesCombiningMarks(t *testing.T) {
	decomposed := "Xoa\u0301"
	composed := "xoá"

	assert.Equal(t, composed, Fold(decomposed))
	assert.Equal(t, Fold(composed), Fold(decomposed))
}

func TestFold_VietnameseUpper(t *testing.T) {
	assert.Equal(t, "tình hình", Fold("  TÌNH HÌNH "))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, ContainsWord("consulting fee march", "fee"))
	assert.False(t, ContainsWord("coffee with minh", "fee"))
	assert.True(t, ContainsWord("tiền hoa hồng tháng", "hoa hồng"))
	assert.True(t, ContainsWord("salary, bonus", "salary"))
	assert.False(t, ContainsWord("anything", ""))
}

package models_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"dragon-treasure/internal/models"
)

func TestPleaValidation(t *testing.T) {
	tests := []struct {
		name string
		plea string
		want error
	}{
		{"empty", "", models.ErrPleaEmpty},
		{"whitespace only", "   \n\t", models.ErrPleaEmpty},
		{"single char", "a", nil},
		{"exactly max", strings.Repeat("x", models.MaxPleaLength), nil},
		{"max after trim", "  " + strings.Repeat("x", models.MaxPleaLength) + "  ", nil},
		{"too long", strings.Repeat("x", models.MaxPleaLength+1), models.ErrPleaTooLong},
		{"multibyte counts runes", strings.Repeat("🐉", models.MaxPleaLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.PleaRequest{Plea: tt.plea}
			assert.Equal(t, tt.want, req.Validate())
		})
	}
}

func TestValidateContractAddress(t *testing.T) {
	addr, err := models.ValidateContractAddress("  0x1234567890abcdef  ")
	assert.NoError(t, err)
	assert.Equal(t, "0x1234567890abcdef", addr)

	_, err = models.ValidateContractAddress("")
	assert.ErrorIs(t, err, models.ErrAddressRequired)

	_, err = models.ValidateContractAddress("1234567890abcdef")
	assert.ErrorIs(t, err, models.ErrAddressPrefix)

	_, err = models.ValidateContractAddress("0x1234")
	assert.ErrorIs(t, err, models.ErrAddressShort)
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, models.IsValidationError(models.ErrPleaTooLong))
	assert.True(t, models.IsValidationError(fmt.Errorf("connect: %w", models.ErrAddressShort)))
	assert.False(t, models.IsValidationError(errors.New("dial tcp: refused")))
	assert.False(t, models.IsValidationError(nil))
}

func TestGameResultConsistent(t *testing.T) {
	assert.True(t, models.GameResult{Success: true, Amount: 3}.Consistent())
	assert.True(t, models.GameResult{Success: false, Amount: 0}.Consistent())
	assert.False(t, models.GameResult{Success: false, Amount: 2}.Consistent())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", models.Truncate("abcdef", 3))
	assert.Equal(t, "ab", models.Truncate("ab", 3))
	assert.Equal(t, "🐉🐉", models.Truncate("🐉🐉🐉", 2))
	assert.Equal(t, "0x1234...", models.ShortHex("0x123456789", 6))
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, models.GenerateHistoryID(), models.GenerateHistoryID())
}

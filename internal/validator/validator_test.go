package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coupon-issuer/internal/domain"
)

func TestValidateDiscountValueBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		ct     domain.CouponType
		dm     domain.DiscountMethod
		value  int64
		wantOK bool
	}{
		{"download rate below min", domain.TypeDownload, domain.MethodRate, 0, false},
		{"download rate min", domain.TypeDownload, domain.MethodRate, 1, true},
		{"download rate max", domain.TypeDownload, domain.MethodRate, 99, true},
		{"download rate above max", domain.TypeDownload, domain.MethodRate, 100, false},

		{"download fixed below min", domain.TypeDownload, domain.MethodFixedPrice, 9, false},
		{"download fixed min", domain.TypeDownload, domain.MethodFixedPrice, 10, true},
		{"download fixed not multiple of 10", domain.TypeDownload, domain.MethodFixedPrice, 15, false},
		{"download fixed multiple of 10", domain.TypeDownload, domain.MethodFixedPrice, 2000, true},

		{"instant rate below min", domain.TypeInstant, domain.MethodRate, 0, false},
		{"instant rate min", domain.TypeInstant, domain.MethodRate, 1, true},
		{"instant rate full", domain.TypeInstant, domain.MethodRate, 100, true},
		{"instant rate above max", domain.TypeInstant, domain.MethodRate, 101, false},

		{"instant fixed below min", domain.TypeInstant, domain.MethodFixedPrice, 0, false},
		{"instant fixed min", domain.TypeInstant, domain.MethodFixedPrice, 1, true},
		{"instant fixed no step rule", domain.TypeInstant, domain.MethodFixedPrice, 15, true},

		{"instant per-quantity below min", domain.TypeInstant, domain.MethodFixedPerQuantity, 0, false},
		{"instant per-quantity min", domain.TypeInstant, domain.MethodFixedPerQuantity, 1, true},

		{"download per-quantity unsupported", domain.TypeDownload, domain.MethodFixedPerQuantity, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDiscountValue(tt.ct, tt.dm, tt.value)
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateTargetItemIDs(t *testing.T) {
	t.Run("empty list rejected for every type", func(t *testing.T) {
		assert.ErrorIs(t, ValidateTargetItemIDs(domain.TypeInstant, nil, 10), ErrNoTargetItems)
		assert.ErrorIs(t, ValidateTargetItemIDs(domain.TypeDownload, nil, 10), ErrNoTargetItems)
	})

	t.Run("ceiling enforced", func(t *testing.T) {
		ids := []int64{1, 2, 3}
		assert.NoError(t, ValidateTargetItemIDs(domain.TypeDownload, ids, 3))
		assert.Error(t, ValidateTargetItemIDs(domain.TypeDownload, ids, 2))
	})

	t.Run("non-positive id rejected", func(t *testing.T) {
		assert.Error(t, ValidateTargetItemIDs(domain.TypeInstant, []int64{42, 0}, 10))
		assert.Error(t, ValidateTargetItemIDs(domain.TypeInstant, []int64{-1}, 10))
	})
}

func TestValidateScalars(t *testing.T) {
	assert.ErrorIs(t, ValidateName(""), ErrEmptyName)
	assert.NoError(t, ValidateName("weekend deal"))

	assert.Error(t, ValidateValidityDays(0))
	assert.NoError(t, ValidateValidityDays(1))

	assert.Error(t, ValidateMinPurchasePrice(0))
	assert.NoError(t, ValidateMinPurchasePrice(1))

	assert.Error(t, ValidateMaxDiscountPrice(0))
	assert.NoError(t, ValidateMaxDiscountPrice(1))

	assert.Error(t, ValidateIssueCount(0))
	assert.NoError(t, ValidateIssueCount(1))
}

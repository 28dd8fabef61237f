package validator

import (
	"errors"
	"fmt"

	"coupon-issuer/internal/domain"
)

var (
	ErrEmptyName     = errors.New("coupon name is empty")
	ErrNoTargetItems = errors.New("target item list is empty")
)

func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return nil
}

func ValidateValidityDays(days int) error {
	if days < 1 {
		return fmt.Errorf("validity days must be >= 1 (got %d)", days)
	}
	return nil
}

// ValidateDiscountValue enforces the platform's range rules, which depend on
// the coupon type and discount method together:
//
//	DOWNLOAD RATE                1..99 (100% not allowed)
//	DOWNLOAD FIXED_PRICE         >= 10, multiple of 10
//	INSTANT  RATE                1..100
//	INSTANT  FIXED_PRICE         >= 1
//	INSTANT  FIXED_PER_QUANTITY  >= 1
func ValidateDiscountValue(ct domain.CouponType, dm domain.DiscountMethod, v int64) error {
	switch ct {
	case domain.TypeDownload:
		switch dm {
		case domain.MethodRate:
			if v < 1 || v > 99 {
				return fmt.Errorf("download rate discount must be 1-99 (got %d)", v)
			}
		case domain.MethodFixedPrice:
			if v < 10 {
				return fmt.Errorf("download fixed discount must be at least 10 won (got %d)", v)
			}
			if v%10 != 0 {
				return fmt.Errorf("download fixed discount must be a multiple of 10 won (got %d)", v)
			}
		default:
			return fmt.Errorf("discount method %s is not supported for download coupons", dm)
		}
	case domain.TypeInstant:
		switch dm {
		case domain.MethodRate:
			if v < 1 || v > 100 {
				return fmt.Errorf("instant rate discount must be 1-100 (got %d)", v)
			}
		case domain.MethodFixedPrice:
			if v < 1 {
				return fmt.Errorf("instant fixed discount must be at least 1 won (got %d)", v)
			}
		case domain.MethodFixedPerQuantity:
			if v < 1 {
				return fmt.Errorf("instant per-quantity discount must be at least 1 (got %d)", v)
			}
		default:
			return fmt.Errorf("unknown discount method %s", dm)
		}
	default:
		return fmt.Errorf("unknown coupon type %s", ct)
	}
	return nil
}

func ValidateMinPurchasePrice(v int64) error {
	if v < 1 {
		return fmt.Errorf("minimum purchase price must be >= 1 won (got %d)", v)
	}
	return nil
}

func ValidateMaxDiscountPrice(v int64) error {
	if v < 1 {
		return fmt.Errorf("maximum discount price must be >= 1 won (got %d)", v)
	}
	return nil
}

func ValidateIssueCount(v int64) error {
	if v < 1 {
		return fmt.Errorf("issue count must be >= 1 (got %d)", v)
	}
	return nil
}

// ValidateTargetItemIDs checks the list is non-empty, every id is positive,
// and the count stays under the per-type platform ceiling.
func ValidateTargetItemIDs(ct domain.CouponType, ids []int64, ceiling int) error {
	if len(ids) == 0 {
		return ErrNoTargetItems
	}
	if len(ids) > ceiling {
		return fmt.Errorf("%s coupons support at most %d target items (got %d)", ct, ceiling, len(ids))
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("target item ids must be positive integers (got %d)", id)
		}
	}
	return nil
}

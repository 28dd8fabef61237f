package loader

import (
	"strings"

	"coupon-issuer/internal/domain"
)

// Free-text cells are matched against an ordered rule list instead of ad-hoc
// string checks: the first rule whose pattern is a substring of the
// normalized cell wins. The localized tokens the merchant-facing template
// uses map 1:1 onto the canonical vocabulary.

type couponTypeRule struct {
	pattern   string
	canonical domain.CouponType
}

var couponTypeRules = []couponTypeRule{
	{"즉시할인", domain.TypeInstant},
	{"INSTANT", domain.TypeInstant},
	{"다운로드", domain.TypeDownload},
	{"DOWNLOAD", domain.TypeDownload},
}

type discountMethodRule struct {
	pattern   string
	canonical domain.DiscountMethod
}

// Patterns are separator-free; cells are matched with every separator
// removed, so "수량별 정액할인" and "수량별정액할인" resolve identically.
// Per-quantity rules must come before the plain fixed-price ones: the
// localized per-quantity token contains the fixed-price token.
var discountMethodRules = []discountMethodRule{
	{"수량별정액", domain.MethodFixedPerQuantity},
	{"FIXEDPERQUANTITY", domain.MethodFixedPerQuantity},
	{"FIXEDWITHQUANTITY", domain.MethodFixedPerQuantity},
	{"정률", domain.MethodRate},
	{"RATE", domain.MethodRate},
	{"정액", domain.MethodFixedPrice},
	{"FIXEDPRICE", domain.MethodFixedPrice},
	{"PRICE", domain.MethodFixedPrice},
}

// NormalizeCouponType strips all whitespace from the cell and substring-
// matches it against the coupon type vocabulary.
func NormalizeCouponType(raw string) (domain.CouponType, bool) {
	s := strings.ToUpper(stripSpace(raw))
	for _, rule := range couponTypeRules {
		if strings.Contains(s, rule.pattern) {
			return rule.canonical, true
		}
	}
	return "", false
}

// NormalizeDiscountMethod uppercases the cell, removes every separator
// (whitespace, hyphens, underscores), and substring-matches the result
// against the discount method vocabulary.
func NormalizeDiscountMethod(raw string) (domain.DiscountMethod, bool) {
	s := stripSeparators(strings.ToUpper(raw))
	for _, rule := range discountMethodRules {
		if strings.Contains(s, rule.pattern) {
			return rule.canonical, true
		}
	}
	return "", false
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '_':
			return -1
		}
		return r
	}, s)
}

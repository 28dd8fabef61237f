// Package loader turns the human-authored coupon specification table into
// validated, normalized CouponRequest values. The first invalid row aborts
// the whole batch: a malformed specification must never issue a partial set
// of coupons.
package loader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"coupon-issuer/internal/config"
	"coupon-issuer/internal/domain"
	"coupon-issuer/internal/validator"
)

// Logical column names. Header matching tolerates incidental whitespace and
// letter case, so "Coupon_Type" or "target_item _ids" still resolve.
const (
	colName             = "name"
	colCouponType       = "coupon_type"
	colValidityDays     = "validity_days"
	colDiscountMethod   = "discount_method"
	colDiscountValue    = "discount_value"
	colMinPurchasePrice = "min_purchase_price"
	colMaxDiscountPrice = "max_discount_price"
	colIssueCount       = "issue_count"
	colTargetItemIDs    = "target_item_ids"
)

var requiredColumns = []string{
	colName, colCouponType, colValidityDays, colDiscountMethod,
	colDiscountValue, colMinPurchasePrice, colMaxDiscountPrice,
	colIssueCount, colTargetItemIDs,
}

// Table is the logical shape of the specification file: a header row naming
// the columns and ordered data rows. How it was encoded on disk is the
// caller's concern.
type Table struct {
	Header []string
	Rows   [][]string
}

// RowError reports the first invalid cell found in the specification file.
type RowError struct {
	Row   int // 1-based line number in the file, header included
	Field string
	Value string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: invalid %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Loader parses specification tables using the configured defaults and
// ceilings.
type Loader struct {
	cfg config.LoaderConfig
}

func New(cfg config.LoaderConfig) *Loader {
	return &Loader{cfg: cfg}
}

// Load validates the table and returns one CouponRequest per data row, in
// input order. Blank rows are skipped. The first invalid row returns a
// *RowError and no requests.
func (l *Loader) Load(t Table) ([]domain.CouponRequest, error) {
	cols, err := resolveColumns(t.Header)
	if err != nil {
		return nil, err
	}

	var requests []domain.CouponRequest
	for i, row := range t.Rows {
		// Line number as an operator would see it in the file.
		line := i + 2
		if blankRow(row) {
			continue
		}
		req, err := l.parseRow(line, row, cols)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// resolveColumns maps each required logical column to its index in the
// header, comparing with whitespace stripped and case folded.
func resolveColumns(header []string) (map[string]int, error) {
	byKey := make(map[string]int, len(header))
	for i, h := range header {
		byKey[headerKey(h)] = i
	}
	cols := make(map[string]int, len(requiredColumns))
	for _, name := range requiredColumns {
		idx, ok := byKey[headerKey(name)]
		if !ok {
			return nil, fmt.Errorf("required column missing: %s", name)
		}
		cols[name] = idx
	}
	return cols, nil
}

func headerKey(h string) string {
	return strings.ToLower(stripSpace(h))
}

func (l *Loader) parseRow(line int, row []string, cols map[string]int) (domain.CouponRequest, error) {
	cell := func(name string) string {
		idx := cols[name]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}
	fail := func(field, value string, err error) (domain.CouponRequest, error) {
		return domain.CouponRequest{}, &RowError{Row: line, Field: field, Value: value, Err: err}
	}

	name := strings.TrimSpace(cell(colName))
	if err := validator.ValidateName(name); err != nil {
		return fail(colName, cell(colName), err)
	}

	rawType := cell(colCouponType)
	couponType, ok := NormalizeCouponType(rawType)
	if !ok {
		return fail(colCouponType, rawType, fmt.Errorf("expected one of %s, %s", domain.TypeInstant, domain.TypeDownload))
	}

	rawDays := cell(colValidityDays)
	days, ok := parseTruncatedInt(rawDays)
	if !ok {
		return fail(colValidityDays, rawDays, fmt.Errorf("not a number"))
	}
	if err := validator.ValidateValidityDays(int(days)); err != nil {
		return fail(colValidityDays, rawDays, err)
	}

	rawMethod := cell(colDiscountMethod)
	method, ok := NormalizeDiscountMethod(rawMethod)
	if !ok {
		return fail(colDiscountMethod, rawMethod, fmt.Errorf("expected one of %s, %s, %s",
			domain.MethodRate, domain.MethodFixedPrice, domain.MethodFixedPerQuantity))
	}

	rawDiscount := cell(colDiscountValue)
	discount, ok := parseTruncatedInt(rawDiscount)
	if !ok {
		return fail(colDiscountValue, rawDiscount, fmt.Errorf("not a number"))
	}
	if err := validator.ValidateDiscountValue(couponType, method, discount); err != nil {
		return fail(colDiscountValue, rawDiscount, err)
	}

	// Minimum purchase threshold only exists for download coupons; blank
	// falls back to the platform minimum.
	var minPurchase int64
	if couponType == domain.TypeDownload {
		raw := strings.TrimSpace(cell(colMinPurchasePrice))
		if raw == "" {
			minPurchase = l.cfg.DefaultMinPurchasePrice
		} else {
			v, ok := parseTruncatedInt(raw)
			if !ok {
				return fail(colMinPurchasePrice, raw, fmt.Errorf("not a number"))
			}
			if err := validator.ValidateMinPurchasePrice(v); err != nil {
				return fail(colMinPurchasePrice, raw, err)
			}
			minPurchase = v
		}
	}

	rawMaxDiscount := cell(colMaxDiscountPrice)
	maxDiscount, ok := parseTruncatedInt(rawMaxDiscount)
	if !ok {
		return fail(colMaxDiscountPrice, rawMaxDiscount, fmt.Errorf("not a number"))
	}
	if err := validator.ValidateMaxDiscountPrice(maxDiscount); err != nil {
		return fail(colMaxDiscountPrice, rawMaxDiscount, err)
	}

	// Issue count is a download-only daily cap; the instant workflow has no
	// use for it and the cell is ignored entirely.
	var issueCount int64
	if couponType == domain.TypeDownload {
		raw := strings.TrimSpace(cell(colIssueCount))
		if raw == "" {
			issueCount = l.cfg.DefaultIssueCount
		} else {
			v, ok := parseTruncatedInt(raw)
			if !ok {
				return fail(colIssueCount, raw, fmt.Errorf("not a number"))
			}
			if err := validator.ValidateIssueCount(v); err != nil {
				return fail(colIssueCount, raw, err)
			}
			issueCount = v
		}
	}

	rawItems := cell(colTargetItemIDs)
	items, err := parseTargetItemIDs(rawItems)
	if err != nil {
		return fail(colTargetItemIDs, rawItems, err)
	}
	ceiling := l.cfg.MaxInstantItems
	if couponType == domain.TypeDownload {
		ceiling = l.cfg.MaxDownloadItems
	}
	if err := validator.ValidateTargetItemIDs(couponType, items, ceiling); err != nil {
		return fail(colTargetItemIDs, rawItems, err)
	}

	return domain.CouponRequest{
		Name:             name,
		Type:             couponType,
		ValidityDays:     int(days),
		Method:           method,
		DiscountValue:    discount,
		MinPurchasePrice: minPurchase,
		MaxDiscountPrice: maxDiscount,
		IssueCount:       issueCount,
		TargetItemIDs:    items,
	}, nil
}

// parseTruncatedInt extracts the numeric content of a free-text cell: every
// character except digits and dots is dropped, the remainder is parsed as a
// float and truncated. "1,000원" and "95.0%" both parse.
func parseTruncatedInt(raw string) (int64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' || r == '.' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func parseTargetItemIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("target item id %q is not an integer", token)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

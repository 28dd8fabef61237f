package loader

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coupon-issuer/internal/config"
	"coupon-issuer/internal/domain"
)

func testLoaderConfig() config.LoaderConfig {
	return config.LoaderConfig{
		DefaultMinPurchasePrice: 10,
		DefaultIssueCount:       1,
		MaxInstantItems:         10000,
		MaxDownloadItems:        100,
	}
}

func specHeader() []string {
	return []string{
		"name", "coupon_type", "validity_days", "discount_method",
		"discount_value", "min_purchase_price", "max_discount_price",
		"issue_count", "target_item_ids",
	}
}

// row builds a data row in header order.
func row(name, ctype, days, method, value, minPurchase, maxDiscount, count, items string) []string {
	return []string{name, ctype, days, method, value, minPurchase, maxDiscount, count, items}
}

func TestLoadPreservesOrderOneRequestPerRow(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("first", "INSTANT", "2", "RATE", "10", "", "1000", "", "101"),
			row("second", "DOWNLOAD", "3", "FIXED_PRICE", "500", "5000", "500", "50", "201,202"),
			row("third", "INSTANT", "1", "FIXED_PER_QUANTITY", "100", "", "100", "", "301"),
		},
	}

	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, "first", requests[0].Name)
	assert.Equal(t, "second", requests[1].Name)
	assert.Equal(t, "third", requests[2].Name)
	assert.Equal(t, domain.TypeInstant, requests[0].Type)
	assert.Equal(t, domain.TypeDownload, requests[1].Type)
	assert.Equal(t, []int64{201, 202}, requests[1].TargetItemIDs)
}

func TestLoadSkipsBlankRows(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("first", "INSTANT", "2", "RATE", "10", "", "1000", "", "101"),
			{"", "", "", "", "", "", "", "", ""},
			row("second", "INSTANT", "2", "RATE", "10", "", "1000", "", "102"),
		},
	}

	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "second", requests[1].Name)
}

func TestHeaderToleratesWhitespaceAndCase(t *testing.T) {
	table := Table{
		Header: []string{
			"Name", "Coupon_Type", "validity _days", "DISCOUNT_METHOD",
			"discount_value", "min_purchase_price", "max_discount_ price",
			"issue_count", "target_item _ids",
		},
		Rows: [][]string{
			row("first", "INSTANT", "2", "RATE", "10", "", "1000", "", "101"),
		},
	}

	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	require.Len(t, requests, 1)
}

func TestMissingColumnRejected(t *testing.T) {
	table := Table{
		Header: []string{"name", "coupon_type"},
	}
	_, err := New(testLoaderConfig()).Load(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required column missing")
}

func TestNumericCellsAreStrippedAndTruncated(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("deal", "DOWNLOAD", "2 days", "FIXED_PRICE", "1,000 won", "5,000", "1,000", "100.7", "101"),
		},
	}

	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	req := requests[0]
	assert.Equal(t, 2, req.ValidityDays)
	assert.Equal(t, int64(1000), req.DiscountValue)
	assert.Equal(t, int64(5000), req.MinPurchasePrice)
	assert.Equal(t, int64(1000), req.MaxDiscountPrice)
	assert.Equal(t, int64(100), req.IssueCount) // truncated, not rounded
}

func TestTargetItemIDNormalization(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("deal", "INSTANT", "1", "RATE", "10", "", "1000", "", " 101 ,, 102 , 103 ,"),
		},
	}

	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102, 103}, requests[0].TargetItemIDs)
}

func TestEmptyTargetItemsRejectedForEveryType(t *testing.T) {
	for _, ctype := range []string{"INSTANT", "DOWNLOAD"} {
		table := Table{
			Header: specHeader(),
			Rows: [][]string{
				row("deal", ctype, "1", "RATE", "10", "", "1000", "", " , ,"),
			},
		}
		_, err := New(testLoaderConfig()).Load(table)
		require.Error(t, err, ctype)

		var rowErr *RowError
		require.ErrorAs(t, err, &rowErr)
		assert.Equal(t, "target_item_ids", rowErr.Field)
	}
}

func TestItemCeilingDependsOnCouponType(t *testing.T) {
	cfg := testLoaderConfig()
	cfg.MaxInstantItems = 3
	cfg.MaxDownloadItems = 2

	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("deal", "INSTANT", "1", "RATE", "10", "", "1000", "", "1,2,3"),
		},
	}
	_, err := New(cfg).Load(table)
	assert.NoError(t, err)

	table.Rows = [][]string{
		row("deal", "DOWNLOAD", "1", "RATE", "10", "", "1000", "", "1,2,3"),
	}
	_, err = New(cfg).Load(table)
	assert.Error(t, err)
}

func TestDownloadDefaults(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("deal", "DOWNLOAD", "1", "RATE", "10", "", "1000", "", "101"),
		},
	}

	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	assert.Equal(t, int64(10), requests[0].MinPurchasePrice)
	assert.Equal(t, int64(1), requests[0].IssueCount)
}

func TestInstantIgnoresDownloadOnlyColumns(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			// Nonsense issue count and min purchase must not matter.
			row("deal", "INSTANT", "1", "RATE", "10", "0", "1000", "0", "101"),
		},
	}

	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	assert.Zero(t, requests[0].MinPurchasePrice)
	assert.Zero(t, requests[0].IssueCount)
}

func TestFirstInvalidRowAbortsWholeBatch(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("good", "INSTANT", "1", "RATE", "10", "", "1000", "", "101"),
			row("bad", "DOWNLOAD", "1", "RATE", "100", "", "1000", "", "102"),
			row("also good", "INSTANT", "1", "RATE", "10", "", "1000", "", "103"),
		},
	}

	requests, err := New(testLoaderConfig()).Load(table)
	require.Error(t, err)
	assert.Nil(t, requests)

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row) // header is line 1
	assert.Equal(t, "discount_value", rowErr.Field)
	assert.Equal(t, "100", rowErr.Value)
}

func TestLocalizedTokensNormalize(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("번개 세일", "즉시할인쿠폰", "1", "정률할인", "15", "", "1000", "", "101"),
			row("주말 쿠폰", "다운로드 쿠폰", "2", "수량별 정액할인", "0", "", "1000", "", "102"),
		},
	}

	_, err := New(testLoaderConfig()).Load(table)
	// Per-quantity is instant-only, so the second row fails on the value,
	// proving both localized tokens resolved first.
	require.Error(t, err)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "discount_value", rowErr.Field)

	table.Rows = table.Rows[:1]
	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeInstant, requests[0].Type)
	assert.Equal(t, domain.MethodRate, requests[0].Method)
}

func TestPerQuantityTokenResolvesWithOrWithoutSpace(t *testing.T) {
	// The localized per-quantity token contains the fixed-price token, so a
	// missing interior space must not demote it to FIXED_PRICE.
	for _, raw := range []string{
		"수량별 정액할인",
		"수량별정액할인",
		"FIXED_PER_QUANTITY",
		"fixed per quantity",
		"FIXED-WITH-QUANTITY",
	} {
		method, ok := NormalizeDiscountMethod(raw)
		require.True(t, ok, raw)
		assert.Equal(t, domain.MethodFixedPerQuantity, method, raw)
	}

	for _, raw := range []string{"정액할인", "FIXED_PRICE", "fixed price"} {
		method, ok := NormalizeDiscountMethod(raw)
		require.True(t, ok, raw)
		assert.Equal(t, domain.MethodFixedPrice, method, raw)
	}
}

func TestUnknownTypeAndMethodRejected(t *testing.T) {
	table := Table{
		Header: specHeader(),
		Rows: [][]string{
			row("deal", "MYSTERY", "1", "RATE", "10", "", "1000", "", "101"),
		},
	}
	_, err := New(testLoaderConfig()).Load(table)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "coupon_type", rowErr.Field)

	table.Rows = [][]string{
		row("deal", "INSTANT", "1", "BOGOF", "10", "", "1000", "", "101"),
	}
	_, err = New(testLoaderConfig()).Load(table)
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "discount_method", rowErr.Field)
}

func TestReadCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"name,coupon_type,validity_days,discount_method,discount_value,min_purchase_price,max_discount_price,issue_count,target_item_ids",
		`weekend,INSTANT,2,RATE,10,,1000,,"101, 102"`,
	}, "\n")

	table, err := ReadCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	requests, err := New(testLoaderConfig()).Load(table)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102}, requests[0].TargetItemIDs)
}

func TestReadCSVEmptyFile(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestRowErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &RowError{Row: 4, Field: "name", Value: "x", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "row 4")
}

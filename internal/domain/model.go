package domain

import "fmt"

// CouponType selects which remote issuance workflow a coupon goes through.
type CouponType string

const (
	// TypeInstant is applied directly to the item price. Created and
	// assigned through the fully asynchronous workflow.
	TypeInstant CouponType = "INSTANT"
	// TypeDownload must be claimed by the shopper. Created and assigned
	// through the synchronous workflow.
	TypeDownload CouponType = "DOWNLOAD"
)

// DiscountMethod determines how the discount value is interpreted.
type DiscountMethod string

const (
	MethodRate             DiscountMethod = "RATE"
	MethodFixedPrice       DiscountMethod = "FIXED_PRICE"
	MethodFixedPerQuantity DiscountMethod = "FIXED_PER_QUANTITY"
)

// CouponRequest is one validated, normalized coupon to issue. Built once by
// the loader and never mutated afterwards.
type CouponRequest struct {
	Name             string
	Type             CouponType
	ValidityDays     int
	Method           DiscountMethod
	DiscountValue    int64
	MinPurchasePrice int64 // download coupons only
	MaxDiscountPrice int64
	IssueCount       int64 // download coupons only, daily cap per shopper
	TargetItemIDs    []int64
}

// Outcome is the terminal state of a single coupon's issuance.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
)

// IssuanceResult records the terminal outcome for one CouponRequest.
type IssuanceResult struct {
	Name    string
	Type    CouponType
	Outcome Outcome
	Message string
}

// BatchReport accumulates results for one run, in input order. It lives only
// for the duration of the run; the log is the durable record.
type BatchReport struct {
	Results []IssuanceResult
}

func (r *BatchReport) Append(res IssuanceResult) {
	r.Results = append(r.Results, res)
}

func (r *BatchReport) SuccessCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeSuccess {
			n++
		}
	}
	return n
}

func (r *BatchReport) FailureCount() int {
	return len(r.Results) - r.SuccessCount()
}

func (r *BatchReport) Summary() string {
	return fmt.Sprintf("%d issued, %d succeeded, %d failed",
		len(r.Results), r.SuccessCount(), r.FailureCount())
}

// Package issuer drives each coupon through the remote issuance workflow.
// Instant coupons go through the asynchronous create/poll/assign/poll
// sequence; download coupons through the synchronous create/assign pair. Any
// step failure restarts the whole per-coupon sequence from the beginning, up
// to a bounded number of attempts.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"coupon-issuer/internal/config"
	"coupon-issuer/internal/domain"
)

// RemoteCouponService is what the orchestrator needs from the platform. The
// signed HTTP client implements it; tests script it.
type RemoteCouponService interface {
	CreateInstantCoupon(ctx context.Context, req domain.CouponRequest, start, end time.Time) (requestID string, err error)
	InstantRequestStatus(ctx context.Context, requestID string) (domain.RequestStatus, error)
	AssignInstantItems(ctx context.Context, couponID int64, items []int64) (requestID string, err error)
	CreateDownloadCoupon(ctx context.Context, req domain.CouponRequest, operator string, start, end time.Time) (couponID int64, err error)
	AssignDownloadItems(ctx context.Context, couponID int64, operator string, items []int64) error
}

// Clock supplies wall-clock time for validity window computation.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ExhaustedError is the terminal per-coupon failure after every attempt was
// used up. It never aborts the remaining coupons.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Issuer processes coupons strictly sequentially in input order. The remote
// API has no documented support for concurrent writes against one account.
type Issuer struct {
	remote   RemoteCouponService
	operator string
	cfg      config.IssuanceConfig
	clock    Clock
}

// New builds an Issuer. A nil clock means wall-clock time.
func New(remote RemoteCouponService, operator string, cfg config.IssuanceConfig, clock Clock) *Issuer {
	if clock == nil {
		clock = systemClock{}
	}
	return &Issuer{remote: remote, operator: operator, cfg: cfg, clock: clock}
}

// IssueBatch runs every request to a terminal outcome and returns the report
// in input order. Only cancellation aborts early; per-coupon exhaustion is
// recorded and processing continues.
func (i *Issuer) IssueBatch(ctx context.Context, requests []domain.CouponRequest) (*domain.BatchReport, error) {
	report := &domain.BatchReport{}

	for idx, req := range requests {
		logCtx := log.WithFields(log.Fields{
			"index":       idx + 1,
			"coupon":      req.Name,
			"coupon_type": req.Type,
		})
		logCtx.Info("Issuing coupon")

		msg, err := i.issueWithRetry(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("batch aborted: %w", ctx.Err())
			}
			logCtx.WithError(err).Error("Coupon failed")
			report.Append(domain.IssuanceResult{
				Name:    req.Name,
				Type:    req.Type,
				Outcome: domain.OutcomeFailed,
				Message: err.Error(),
			})
			continue
		}

		logCtx.Info("Coupon issued")
		report.Append(domain.IssuanceResult{
			Name:    req.Name,
			Type:    req.Type,
			Outcome: domain.OutcomeSuccess,
			Message: msg,
		})
	}
	return report, nil
}

// issueWithRetry restarts the whole per-coupon sequence on any failure. No
// partial-state resumption: a coupon created by a failed attempt is left to
// the platform, the next attempt starts over from creation.
func (i *Issuer) issueWithRetry(ctx context.Context, req domain.CouponRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= i.cfg.MaxAttempts; attempt++ {
		msg, err := i.issueOnce(ctx, req)
		if err == nil {
			if attempt > 1 {
				log.WithFields(log.Fields{
					"coupon":  req.Name,
					"attempt": attempt,
				}).Info("Coupon issued after retry")
			}
			return msg, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		lastErr = err
		if attempt < i.cfg.MaxAttempts {
			log.WithFields(log.Fields{
				"coupon":       req.Name,
				"attempt":      attempt,
				"max_attempts": i.cfg.MaxAttempts,
			}).WithError(err).Warn("Attempt failed, restarting sequence")

			if err := sleepCtx(ctx, i.cfg.RetryDelay); err != nil {
				return "", err
			}
		}
	}
	return "", &ExhaustedError{Attempts: i.cfg.MaxAttempts, Last: lastErr}
}

func (i *Issuer) issueOnce(ctx context.Context, req domain.CouponRequest) (string, error) {
	switch req.Type {
	case domain.TypeInstant:
		return i.issueInstant(ctx, req)
	case domain.TypeDownload:
		return i.issueDownload(ctx, req)
	default:
		return "", fmt.Errorf("unknown coupon type %s", req.Type)
	}
}

// issueInstant runs the asynchronous workflow: create, poll the creation
// handle, assign items, poll the assignment handle.
func (i *Issuer) issueInstant(ctx context.Context, req domain.CouponRequest) (string, error) {
	// Valid from today's local midnight for the configured number of days.
	start := midnight(i.clock.Now())
	end := start.AddDate(0, 0, req.ValidityDays)

	createID, err := i.remote.CreateInstantCoupon(ctx, req, start, end)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	log.WithFields(log.Fields{"coupon": req.Name, "request_id": createID}).Info("Instant coupon creation requested")

	status, err := i.awaitRequest(ctx, createID)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	if status.CouponID == 0 {
		return "", fmt.Errorf("create: request %s finished without a coupon id", createID)
	}
	log.WithFields(log.Fields{"coupon": req.Name, "coupon_id": status.CouponID}).Info("Instant coupon created")

	assignID, err := i.remote.AssignInstantItems(ctx, status.CouponID, req.TargetItemIDs)
	if err != nil {
		return "", fmt.Errorf("assign: %w", err)
	}
	log.WithFields(log.Fields{"coupon": req.Name, "request_id": assignID}).Info("Item assignment requested")

	if _, err := i.awaitRequest(ctx, assignID); err != nil {
		return "", fmt.Errorf("assign: %w", err)
	}

	return fmt.Sprintf("instant coupon %d created, %d items assigned", status.CouponID, len(req.TargetItemIDs)), nil
}

// issueDownload runs the synchronous workflow. When assignment fails the
// platform destroys the just-created coupon on its side; the failure is
// recorded as-is and no compensation is attempted.
func (i *Issuer) issueDownload(ctx context.Context, req domain.CouponRequest) (string, error) {
	now := i.clock.Now()
	// Validity starts slightly in the future so the platform has propagated
	// the coupon by the time it is live; the end stays midnight-anchored.
	start := now.Add(i.cfg.DownloadStartDelay)
	end := midnight(now).AddDate(0, 0, req.ValidityDays)

	couponID, err := i.remote.CreateDownloadCoupon(ctx, req, i.operator, start, end)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	log.WithFields(log.Fields{"coupon": req.Name, "coupon_id": couponID}).Info("Download coupon created")

	if err := i.remote.AssignDownloadItems(ctx, couponID, i.operator, req.TargetItemIDs); err != nil {
		log.WithFields(log.Fields{"coupon": req.Name, "coupon_id": couponID}).
			Warn("Assignment failed; the platform destroys the coupon")
		return "", fmt.Errorf("assign: %w", err)
	}

	return fmt.Sprintf("download coupon %d created, %d items assigned", couponID, len(req.TargetItemIDs)), nil
}

// awaitRequest polls an asynchronous handle within the configured budget.
// A PENDING observation consumes one attempt; exhausting the budget while
// still pending is a timeout failure.
func (i *Issuer) awaitRequest(ctx context.Context, requestID string) (domain.RequestStatus, error) {
	var status domain.RequestStatus
	for attempt := 1; attempt <= i.cfg.PollAttempts; attempt++ {
		var err error
		status, err = i.remote.InstantRequestStatus(ctx, requestID)
		if err != nil {
			return status, err
		}

		switch status.State {
		case domain.RemoteStateDone:
			return status, nil
		case domain.RemoteStateFailed:
			return status, fmt.Errorf("request %s failed: %s", requestID, status.Message)
		}

		log.WithFields(log.Fields{
			"request_id": requestID,
			"attempt":    attempt,
			"budget":     i.cfg.PollAttempts,
		}).Debug("Request still pending")

		if attempt < i.cfg.PollAttempts {
			if err := sleepCtx(ctx, i.cfg.PollInterval); err != nil {
				return status, err
			}
		}
	}
	return status, fmt.Errorf("request %s still pending after %d polls", requestID, i.cfg.PollAttempts)
}

// sleepCtx sleeps for d or until the context is cancelled, whichever comes
// first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsCancellation reports whether err is the run being aborted rather than a
// remote failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"coupon-issuer/internal/domain"
	"coupon-issuer/internal/issuer"
	"coupon-issuer/internal/jitter"
	"coupon-issuer/internal/loader"
	"coupon-issuer/internal/sender"
)

// TableSource supplies the specification table. Reading is deferred until
// after the jitter wait so the file is parsed once, right before issuance.
type TableSource func() (loader.Table, error)

// IssueService is the run entrypoint: jitter wait, load, issue, report.
type IssueService struct {
	loader       *loader.Loader
	issuer       *issuer.Issuer
	gate         *jitter.Gate        // nil disables the jitter wait
	reportSender sender.ReportSender // nil disables the report mail
}

func NewIssueService(l *loader.Loader, i *issuer.Issuer, gate *jitter.Gate, rs sender.ReportSender) *IssueService {
	return &IssueService{loader: l, issuer: i, gate: gate, reportSender: rs}
}

// Run executes one batch. A malformed specification or cancellation returns
// an error before/without completing the batch; per-coupon failures are
// recorded in the report and do not.
func (s *IssueService) Run(ctx context.Context, source TableSource) (*domain.BatchReport, error) {
	runLog := log.WithField("run_id", uuid.NewString())
	runLog.Info("Coupon issuance run starting")

	if s.gate != nil {
		if err := s.gate.Wait(ctx); err != nil {
			return nil, fmt.Errorf("jitter wait aborted: %w", err)
		}
	}

	table, err := source()
	if err != nil {
		return nil, err
	}

	requests, err := s.loader.Load(table)
	if err != nil {
		// Fail fast: no remote call is made once any row is invalid.
		return nil, fmt.Errorf("specification rejected: %w", err)
	}
	if len(requests) == 0 {
		runLog.Info("No coupons to issue")
		return &domain.BatchReport{}, nil
	}
	runLog.WithField("coupons", len(requests)).Info("Specification loaded")

	report, err := s.issuer.IssueBatch(ctx, requests)
	if err != nil {
		return report, err
	}

	for _, res := range report.Results {
		runLog.WithFields(log.Fields{
			"coupon":  res.Name,
			"outcome": res.Outcome,
		}).Info(res.Message)
	}
	runLog.Info("Run complete: " + report.Summary())

	if s.reportSender != nil {
		if err := s.reportSender.SendReport(ctx, report); err != nil {
			// The log already carries the full report; mail is best effort.
			runLog.WithError(err).Error("Failed to send report mail")
		} else {
			runLog.Info("Report mail sent")
		}
	}

	return report, nil
}

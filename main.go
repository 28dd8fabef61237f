package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"coupon-issuer/internal/config"
	"coupon-issuer/internal/coupang"
	"coupon-issuer/internal/domain"
	"coupon-issuer/internal/issuer"
	"coupon-issuer/internal/jitter"
	"coupon-issuer/internal/loader"
	"coupon-issuer/internal/sender"
	"coupon-issuer/internal/service"
)

const defaultSpecFile = "coupons.csv"

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	if os.Getenv("DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "issue":
		cmdIssue(os.Args[2:])
	case "verify":
		cmdVerify(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage:
  coupon-issuer issue  [-file coupons.csv] [-jitter-max MINUTES]
  coupon-issuer verify [-file coupons.csv]

issue   runs the coupon batch once, optionally delayed by a random jitter
verify  validates the specification file and prints a preview, no API calls`)
}

func cmdIssue(args []string) {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	file := fs.String("file", defaultSpecFile, "coupon specification file")
	jitterMax := fs.Int("jitter-max", 0, "maximum random start delay in minutes (0 disables)")
	fs.Parse(args)

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	var gate *jitter.Gate
	if *jitterMax > 0 {
		gate, err = jitter.NewGate(*jitterMax)
		if err != nil {
			log.WithError(err).Fatal("Invalid jitter setting")
		}
	}

	client := coupang.NewClient(cfg.BaseURL, cfg.AccessKey, cfg.SecretKey,
		cfg.VendorID, cfg.ContractID, cfg.Issuance.RequestTimeout)
	iss := issuer.New(client, cfg.UserID, cfg.Issuance, nil)

	var reportSender sender.ReportSender
	if cfg.SMTP.Enabled() {
		reportSender = sender.NewSMTPReportSender(cfg.SMTP)
	}

	svc := service.NewIssueService(loader.New(cfg.Loader), iss, gate, reportSender)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Per-coupon failures live in the report and the log; only a rejected
	// specification or cancellation makes the process exit non-zero.
	if _, err := svc.Run(ctx, func() (loader.Table, error) {
		return loader.ReadCSVFile(*file)
	}); err != nil {
		if issuer.IsCancellation(err) {
			log.Warn("Run cancelled")
			os.Exit(130)
		}
		log.WithError(err).Fatal("Run failed")
	}
}

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	file := fs.String("file", defaultSpecFile, "coupon specification file")
	fs.Parse(args)

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded")
	}

	loaderCfg, err := config.LoadLoaderConfig()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	table, err := loader.ReadCSVFile(*file)
	if err != nil {
		log.WithError(err).Fatal("Failed to read specification file")
	}

	requests, err := loader.New(loaderCfg).Load(table)
	if err != nil {
		log.WithError(err).Fatal("Specification rejected")
	}

	printPreview(requests)
	fmt.Printf("\n%d coupons verified, ready to issue\n", len(requests))
}

func printPreview(requests []domain.CouponRequest) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NO\tNAME\tTYPE\tDAYS\tMETHOD\tVALUE\tMIN PURCHASE\tMAX DISCOUNT\tISSUE COUNT\tITEMS\tBUDGET")
	for i, req := range requests {
		// Worst-case spend: fixed discount times the daily issue cap.
		budget := int64(0)
		if req.Method != domain.MethodRate && req.IssueCount > 0 {
			budget = req.DiscountValue * req.IssueCount
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			i+1, req.Name, req.Type, req.ValidityDays, req.Method,
			req.DiscountValue, req.MinPurchasePrice, req.MaxDiscountPrice,
			req.IssueCount, len(req.TargetItemIDs), budget)
	}
	w.Flush()
}

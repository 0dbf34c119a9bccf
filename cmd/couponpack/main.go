// Command couponpack compiles gzipped promo code lists into the compact pack
// the storefront validates codes against offline. Code lists are newline
// separated; codes outside the accepted length range are skipped. Dedicated
// discount rules can be attached from a JSON rules file; every other code in
// the pack gets the default rule.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/veilmart/storefront/internal/domain/coupon"
)

const progressEvery = 10_000_000

func main() {
	var (
		out          string
		rulesPath    string
		expected     uint
		fpr          float64
		minLen       int
		maxLen       int
		defaultValue string
	)

	flag.StringVar(&out, "out", "coupons.pack", "output pack file")
	flag.StringVar(&rulesPath, "rules", "", "JSON file with dedicated discount rules")
	flag.UintVar(&expected, "expected", 1_000_000, "expected number of codes (bloom filter sizing)")
	flag.Float64Var(&fpr, "fpr", 0.001, "accepted false positive rate")
	flag.IntVar(&minLen, "min-len", 8, "minimum code length")
	flag.IntVar(&maxLen, "max-len", 10, "maximum code length")
	flag.StringVar(&defaultValue, "default-percent", "10", "default discount percentage for plain codes")
	flag.Parse()

	if flag.NArg() == 0 {
		slog.Error("at least one gzipped code list is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, buildConfig{
		out:          out,
		rulesPath:    rulesPath,
		files:        flag.Args(),
		expected:     expected,
		fpr:          fpr,
		minLen:       minLen,
		maxLen:       maxLen,
		defaultValue: defaultValue,
	}); err != nil {
		slog.Error("pack build failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("pack built", slog.String("out", out))
}

type buildConfig struct {
	out          string
	rulesPath    string
	files        []string
	expected     uint
	fpr          float64
	minLen       int
	maxLen       int
	defaultValue string
}

func run(ctx context.Context, cfg buildConfig) error {
	for _, f := range cfg.files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	value, err := decimal.NewFromString(cfg.defaultValue)
	if err != nil {
		return errors.Wrap(err, "parse default percentage")
	}
	pack := coupon.NewPack(cfg.expected, cfg.fpr, coupon.Rule{
		DiscountType: coupon.DiscountPercentage,
		Value:        value,
		Description:  fmt.Sprintf("Valid promo code: %s%% off", value),
	})

	// Scan all lists concurrently; a single collector owns the pack since
	// the bloom filter is not safe for concurrent writes.
	codes := make(chan string, 4096)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for code := range codes {
			pack.AddCode(code)
		}
		return nil
	})

	scan, ctx := errgroup.WithContext(ctx)
	for i, f := range cfg.files {
		scan.Go(scanFile(ctx, i, f, cfg, codes))
	}
	err = scan.Wait()
	close(codes)
	if gErr := g.Wait(); err == nil {
		err = gErr
	}
	if err != nil {
		return errors.Wrap(err, "scan code lists")
	}

	if cfg.rulesPath != "" {
		data, err := os.ReadFile(cfg.rulesPath)
		if err != nil {
			return errors.Wrap(err, "read rules file")
		}
		rules, err := coupon.ParseRules(data)
		if err != nil {
			return err
		}
		for _, r := range rules {
			pack.SetRule(r.Code, r)
		}
		slog.Info("dedicated rules attached", slog.Int("count", len(rules)))
	}

	return pack.Save(cfg.out)
}

func scanFile(ctx context.Context, idx int, path string, cfg buildConfig, codes chan<- string) func() error {
	return func() error {
		var count uint64
		err := streamGzFile(ctx, path, func(code string) error {
			if len(code) < cfg.minLen || len(code) > cfg.maxLen {
				return nil
			}
			count++
			if count%progressEvery == 0 {
				slog.Info("scan progress",
					slog.Int("file", idx+1),
					slog.Uint64("codes", count),
				)
			}
			select {
			case codes <- code:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return errors.Wrapf(err, "scan file %d", idx+1)
		}

		slog.Info("scan complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_codes", count),
		)
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

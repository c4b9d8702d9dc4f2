package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/decompool"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/decompressor"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotformat"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotreader"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/validator"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/verifier"
)

var gitCommitSHA = ""

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			klog.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}

		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "plotproof",
		Version:     gitCommitSHA,
		Description: "Inspect and validate compressed proof-of-space plot files.",
		Flags:       NewKlogFlagSet(),
		Commands: []*cli.Command{
			newCmdOpen(),
			newCmdLookupQuality(),
			newCmdLookupProof(),
			newCmdValidatePlot(),
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		klog.Fatal(err)
	}
}

func plotPathFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "plot",
		Usage:    "path to a .plot file",
		Required: true,
	}
}

func plotIDFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "plot-id",
		Usage:    "hex-encoded 32-byte plot id",
		Required: true,
	}
}

func parsePlotID(hexStr string) ([32]byte, error) {
	var id [32]byte
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return id, fmt.Errorf("plot-id: %w", err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("plot-id: expected 32 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// newCmdOpen opens a plot file, parses its header and reports the basic
// facts a user needs before running a lookup: k and compression level.
func newCmdOpen() *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "open a plot file and print its header",
		Flags: []cli.Flag{plotPathFlag()},
		Action: func(c *cli.Context) error {
			log := slog.Default()
			r, err := plotreader.Open(c.String("plot"), log)
			if err != nil {
				return err
			}
			defer r.Close()
			h := r.Header()
			fmt.Printf("k=%d compression_level=%d\n", h.K, r.CompressionLevel())
			return nil
		},
	}
}

// newCmdLookupQuality resolves the quality string for a challenge against
// an already-fetched proof, ported from spec.md §6's "lookup quality
// string" operation.
func newCmdLookupQuality() *cli.Command {
	return &cli.Command{
		Name:  "lookup-quality",
		Usage: "compute the quality string for a challenge given a full proof",
		Flags: []cli.Flag{
			plotIDFlag(),
			&cli.IntFlag{Name: "k", Required: true},
			&cli.StringFlag{Name: "proof", Usage: "hex-encoded big-endian proof bytes", Required: true},
			&cli.StringFlag{Name: "challenge", Usage: "hex-encoded 32-byte challenge", Required: true},
		},
		Action: func(c *cli.Context) error {
			plotID, err := parsePlotID(c.String("plot-id"))
			if err != nil {
				return err
			}
			proof, err := hex.DecodeString(c.String("proof"))
			if err != nil {
				return fmt.Errorf("proof: %w", err)
			}
			challenge, err := hex.DecodeString(c.String("challenge"))
			if err != nil {
				return fmt.Errorf("challenge: %w", err)
			}
			quality, err := verifier.ValidateProof(plotID, uint8(c.Int("k")), proof, challenge)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", hex.EncodeToString(quality[:]))
			return nil
		},
	}
}

// newCmdLookupProof fetches a full proof for a challenge's f7 value from
// an open plot, decompressing it via the pool if the plot is compressed.
func newCmdLookupProof() *cli.Command {
	return &cli.Command{
		Name:  "lookup-proof",
		Usage: "fetch the full proof for a given f7 value",
		Flags: []cli.Flag{
			plotPathFlag(),
			plotIDFlag(),
			&cli.Uint64Flag{Name: "f7", Required: true},
		},
		Action: func(c *cli.Context) error {
			log := slog.Default()
			plotID, err := parsePlotID(c.String("plot-id"))
			if err != nil {
				return err
			}
			r, err := plotreader.Open(c.String("plot"), log)
			if err != nil {
				return err
			}
			defer r.Close()

			f7 := c.Uint64("f7")
			matchCount, p7Index, err := r.GetP7IndicesForF7(f7)
			_ = matchCount
			if err != nil {
				return err
			}
			p7Park := make([]uint64, plotformat.KEntriesPerPark)
			if err := r.ReadP7Park(int(p7Index/plotformat.KEntriesPerPark), p7Park); err != nil {
				return err
			}
			t6Index := p7Park[p7Index%plotformat.KEntriesPerPark]
			xs, seeds, err := r.FetchProof(t6Index)
			if err != nil {
				return err
			}
			if xs == nil {
				cfg := decompressor.Config{K: r.Header().K, CompressionLevel: r.CompressionLevel()}
				pool := decompool.New(1, cfg)
				inst, perr := pool.PullWait(10_000_000_000)
				if perr != nil {
					return perr
				}
				xs, err = inst.Decompressor.DecompressProof(plotID, seeds)
				pool.Push(inst)
				if err != nil {
					return err
				}
			}
			fmt.Printf("%s\n", hex.EncodeToString(verifier.ProofToBytes(xs)))
			return nil
		},
	}
}

// newCmdValidatePlot runs a full disk scan, re-deriving f7 for every C3
// entry and reporting a pass/fail summary.
func newCmdValidatePlot() *cli.Command {
	return &cli.Command{
		Name:  "validate-plot",
		Usage: "re-derive f7 for every checkpoint entry and report mismatches",
		Flags: []cli.Flag{
			plotPathFlag(),
			plotIDFlag(),
			&cli.IntFlag{Name: "k", Required: true},
			&cli.IntFlag{Name: "threads", Value: 0},
		},
		Action: func(c *cli.Context) error {
			log := slog.Default()
			plotID, err := parsePlotID(c.String("plot-id"))
			if err != nil {
				return err
			}
			opts := validator.DefaultOptions()
			if t := c.Int("threads"); t > 0 {
				opts.ThreadCount = t
			}
			result, err := validator.ValidatePlot(c.Context, c.String("plot"), uint8(c.Int("k")), plotID, log, opts)
			if err != nil {
				return err
			}
			metricsValidatorTotalProofs.Add(float64(result.TotalProofs))
			metricsValidatorMismatches.Add(float64(result.FailedProofs))
			fmt.Printf("checked %s proofs, %s mismatches\n",
				humanize.Comma(result.TotalProofs), humanize.Comma(result.FailedProofs))
			if result.FailedProofs > 0 {
				return fmt.Errorf("validate-plot: %d mismatches", result.FailedProofs)
			}
			return nil
		},
	}
}

package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/nldkit/internal/config"
	"github.com/san-kum/nldkit/internal/q15"
	"github.com/san-kum/nldkit/internal/signals"
)

// loadSignal generates the named signal, or reads it from a csv file when
// the source is not a generator name.
func loadSignal(sc config.SignalConfig, rawQ15 bool) (q15.Signal, error) {
	if isGenerator(sc.Source) {
		sig, err := signals.GenerateWith(sc.Source, sc.Length, sc.Seed, signalOptions(sc))
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"generator":  sc.Source,
			"samples":    len(sig),
			"seed":       sc.Seed,
			"integrator": sc.Integrator,
			"params":     sc.Params,
		}).Debug("signal generated")
		return sig, nil
	}

	f, err := os.Open(sc.Source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s is neither a signal generator (%s) nor a file", sc.Source, strings.Join(signals.Names(), ", "))
		}
		return nil, err
	}
	defer f.Close()

	sig, err := readSignal(f, sc.Column, sc.Length, rawQ15)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sc.Source, err)
	}
	log.WithFields(logrus.Fields{"file": sc.Source, "samples": len(sig), "column": sc.Column}).Debug("signal loaded")
	return sig, nil
}

func isGenerator(source string) bool {
	for _, name := range signals.Names() {
		if name == source {
			return true
		}
	}
	return false
}

func signalOptions(sc config.SignalConfig) signals.Options {
	return signals.Options{Params: sc.Params, Integrator: sc.Integrator}
}

// signalModel returns the attractor behind a generated source, or nil for
// stochastic generators and files.
func signalModel(sc config.SignalConfig) (*signals.Model, error) {
	if !isGenerator(sc.Source) {
		return nil, nil
	}
	m, ok, err := signals.LookupModel(sc.Source, signalOptions(sc))
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

// readSignal parses one csv column into Q15 samples. Float values are
// clipped to [-1, 1); with rawQ15 the values are integer LSBs. A first row
// that does not parse is taken as a header. limit <= 0 reads every row.
func readSignal(r io.Reader, col, limit int, rawQ15 bool) (q15.Signal, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var sig q15.Signal
	for row := 0; limit <= 0 || len(sig) < limit; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if col < 0 || col >= len(rec) {
			return nil, fmt.Errorf("row %d has no column %d", row+1, col)
		}

		field := strings.TrimSpace(rec[col])
		if rawQ15 {
			v, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				if row == 0 {
					continue
				}
				return nil, fmt.Errorf("row %d: %w", row+1, err)
			}
			sig = append(sig, q15.Saturate(v))
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			if row == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		sig = append(sig, q15.FromFloat(v))
	}

	if len(sig) == 0 {
		return nil, fmt.Errorf("no samples")
	}
	return sig, nil
}

// writeSignal writes sig as an index,value,q15 csv.
func writeSignal(w io.Writer, sig q15.Signal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "value", "q15"}); err != nil {
		return err
	}
	for i, q := range sig {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(q.Float(), 'f', 6, 64),
			strconv.Itoa(int(q)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/park285/pgn2gif/internal/config"
)

// promptMissing asks for the input file and output directory when neither
// flags, environment nor config file supplied them.
func promptMissing(in io.Reader, out io.Writer, cfg *config.AppConfig) error {
	sc := bufio.NewScanner(in)
	ask := func(label string, dst *string) error {
		if *dst != "" {
			return nil
		}
		fmt.Fprintf(out, "%s: ", label)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return fmt.Errorf("read %s: %w", strings.ToLower(label), err)
			}
			return nil
		}
		*dst = strings.Trim(strings.TrimSpace(sc.Text()), `"'`)
		return nil
	}
	if err := ask("PGN file", &cfg.Input); err != nil {
		return err
	}
	return ask("Output directory", &cfg.Output)
}

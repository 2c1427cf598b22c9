package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/ml"
)

// openInput returns the named file, or stdin for "" and "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// readObservation decodes one observation record.
func readObservation(cmd *cobra.Command, path string) (domain.ClimateObservation, error) {
	r, err := openInput(cmd, path)
	if err != nil {
		return domain.ClimateObservation{}, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.ClimateObservation{}, fmt.Errorf("read observation: %w", err)
	}
	return domain.ParseObservation(data)
}

// readSamples decodes a JSON array of labelled samples.
func readSamples(cmd *cobra.Command, path string) ([]ml.Sample, error) {
	r, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var samples []ml.Sample
	if err := json.NewDecoder(r).Decode(&samples); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	return samples, nil
}

// writeJSON writes v as indented JSON to path, or to the command's stdout for "" and "-".
// A file that fails to flush on close is reported, not left truncated silently.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	if path == "" || path == "-" {
		return encodeJSON(cmd.OutOrStdout(), v)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := encodeJSON(f, v); err != nil {
		f.Close() //nolint:errcheck // already returning the encode error
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// parsePoint parses "lat,lon".
func parsePoint(s string) (domain.Geo, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Geo{}, fmt.Errorf("point %q: want lat,lon", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return domain.Geo{}, fmt.Errorf("point %q: %w", s, err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return domain.Geo{}, fmt.Errorf("point %q: %w", s, err)
	}
	return domain.Geo{Lat: la, Lon: lo}, nil
}

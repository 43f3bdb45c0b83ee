// Command dsprobe inspects a single catalog dataset. It resolves the IRI,
// fetches the table schema, and sniffs the payload dialect from a bounded
// sample, then prints a JSON report including a job skeleton for cmd/katalog.
// The payload is never fully downloaded.
//
// Usage:
//
//	dsprobe -iri https://data.gov.cz/zdroj/datové-sady/00025593/123
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"katalog/internal/catalog"
	"katalog/internal/probe"
	"katalog/internal/stream"
)

var (
	flagIRI      = flag.String("iri", "", "dataset IRI to inspect (required)")
	flagEndpoint = flag.String("endpoint", catalog.DefaultEndpoint, "catalog query endpoint")
	flagLocale   = flag.String("locale", catalog.DefaultLocale, "metadata locale")
	flagBytes    = flag.Int("bytes", stream.SampleSize, "number of payload bytes to sample")
	flagTimeout  = flag.Duration("timeout", 30*time.Second, "per-request HTTP timeout")
	flagSave     = flag.String("save", "", "write the sampled payload bytes to this file")
	flagInsecure = flag.Bool("insecure", false, "skip TLS certificate verification")
)

func main() {
	flag.Parse()

	if *flagIRI == "" {
		fmt.Fprintln(os.Stderr, "dsprobe: -iri is required")
		flag.Usage()
		os.Exit(2)
	}

	rep, err := probe.Probe(context.Background(), probe.Options{
		IRI:                *flagIRI,
		Endpoint:           *flagEndpoint,
		Locale:             *flagLocale,
		SampleBytes:        *flagBytes,
		Timeout:            *flagTimeout,
		SavePath:           *flagSave,
		InsecureSkipVerify: *flagInsecure,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dsprobe: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		fmt.Fprintf(os.Stderr, "dsprobe: %v\n", err)
		os.Exit(1)
	}
}

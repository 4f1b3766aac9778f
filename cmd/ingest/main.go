package main

import (
	"archive/zip"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gazetteer-api/internal/config"
	"gazetteer-api/internal/repository"
	"gazetteer-api/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

func main() {
	file := flag.String("file", "", "path to a gazetteer dump (.txt or .zip)")
	url := flag.String("url", "", "URL of a gazetteer dump to download (.txt or .zip)")
	source := flag.String("source", "", "source partition tag (default: dump base name)")
	version := flag.String("version", time.Now().UTC().Format("20060102T150405Z"), "batch version tag")
	flag.Parse()

	if (*file == "") == (*url == "") {
		log.Fatal().Msg("exactly one of -file or -url is required")
	}

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	path := *file
	if *url != "" {
		path, err = download(*url)
		if err != nil {
			log.Fatal().Err(err).Str("url", *url).Msg("cannot download dump")
		}
		defer os.Remove(path)
	}

	if *source == "" {
		base := filepath.Base(path)
		*source = strings.TrimSuffix(base, filepath.Ext(base))
	}

	r, closeReader, err := openDump(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("cannot open dump")
	}
	defer closeReader()

	conn, err := pgxpool.New(context.Background(), cfg.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close()

	repo := repository.NewRepository(conn)
	ingestService := service.NewIngestService(repo, log.Logger)

	ctx := context.Background()
	if cfg.IngestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.IngestTimeout)
		defer cancel()
	}

	report, err := ingestService.Ingest(ctx, r, *source, *version)
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}

	log.Info().
		Int("accepted", report.Accepted).
		Int("rejected", report.Rejected).
		Int64("pruned", report.Pruned).
		Int64("duration_ms", report.DurationMs).
		Msg("ingestion complete")
	for _, sample := range report.RejectedSamples {
		log.Warn().Str("reason", sample.Reason).Msg("rejected row sample")
	}
}

// download fetches the dump to a temporary file, keeping the extension so
// zip archives are recognized.
func download(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "gazetteer-*"+filepath.Ext(url))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// openDump opens a plain dump file, or the first .txt entry of a zip
// archive (the upstream export packs one dump per archive).
func openDump(path string) (io.Reader, func(), error) {
	if !strings.HasSuffix(path, ".zip") {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, err
	}
	for _, entry := range zr.File {
		if strings.HasSuffix(entry.Name, ".txt") {
			rc, err := entry.Open()
			if err != nil {
				zr.Close()
				return nil, nil, err
			}
			return rc, func() { rc.Close(); zr.Close() }, nil
		}
	}
	zr.Close()
	return nil, nil, fmt.Errorf("no .txt entry in %s", path)
}

package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"card-quiz/internal/app"
	"github.com/rs/zerolog/log"
)

// LineIngester feeds runs arriving as newline-delimited JSON, such as a
// radio bridge on a serial port, into the collector.
type LineIngester struct {
	collector *app.Collector
}

func NewLineIngester(collector *app.Collector) *LineIngester {
	return &LineIngester{collector: collector}
}

// Run consumes src until EOF or ctx is done. Bad lines are logged and skipped.
func (l *LineIngester) Run(ctx context.Context, src io.Reader) error {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, MaxRunBody), MaxRunBody)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		l.ingest(ctx, line)
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		if errors.Is(err, bufio.ErrTooLong) {
			log.Error().Int("limit", MaxRunBody).Msg("serial line too long, ingest stopped")
		}
		return err
	}
	return nil
}

func (l *LineIngester) ingest(ctx context.Context, line []byte) {
	var payload runPayload
	if err := json.Unmarshal(line, &payload); err != nil {
		log.Warn().Err(err).Bytes("line", line).Msg("serial line is not a run")
		return
	}
	run, err := payload.run()
	if err != nil {
		log.Warn().Err(err).Bytes("line", line).Msg("serial run rejected")
		return
	}
	res, err := l.collector.Submit(ctx, run)
	if err != nil {
		log.Warn().Err(err).Str("name", run.Name).Msg("serial run rejected")
		return
	}
	log.Info().Str("name", run.Name).Bool("stored", res.Stored).Msg("serial run ingested")
}

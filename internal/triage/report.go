package triage

import "log/slog"

// Report tallies what one ingest or resolve run did.
type Report struct {
	Fetched   int
	Skipped   int
	Inserted  int
	Updated   int
	OutOfBand int
	Untouched int
	Failed    int
}

// LogValue renders the report as a slog group.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("fetched", r.Fetched),
		slog.Int("skipped", r.Skipped),
		slog.Int("inserted", r.Inserted),
		slog.Int("updated", r.Updated),
		slog.Int("out_of_band", r.OutOfBand),
		slog.Int("untouched", r.Untouched),
		slog.Int("failed", r.Failed),
	)
}

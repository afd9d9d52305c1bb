package results

import (
	"net/url"
	"strings"

	"github.com/animus-labs/tfbridge/internal/domain"
)

const DefaultArtifactsBaseURL = "https://artifacts.osci.redhat.com"

const (
	LogWorkdir           = "workdir"
	LogVerbose           = "tmt-verbose-log"
	LogReproducer        = "tmt-reproducer"
	LogJumpReproducer    = "tmt-jump-reproducer"
	placeholderRunID     = "{run_id}"
	placeholderSuiteName = "{suite}"
)

// Links holds URL templates for the per-suite log references. Templates may
// use {run_id} and {suite}.
type Links struct {
	Workdir        string `yaml:"workdir"`
	VerboseLog     string `yaml:"verbose_log"`
	Reproducer     string `yaml:"reproducer"`
	JumpReproducer string `yaml:"jump_reproducer"`
}

// DefaultLinks lays suites out under base/{run_id}{suite}.
func DefaultLinks(base string) Links {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultArtifactsBaseURL
	}
	dir := base + "/" + placeholderRunID + placeholderSuiteName
	return Links{
		Workdir:        dir,
		VerboseLog:     dir + "/log.txt",
		Reproducer:     dir + "/tmt-reproducer.sh",
		JumpReproducer: dir + "/tmt-jump-reproducer.sh",
	}
}

// Merge fills empty templates from fallback.
func (l Links) Merge(fallback Links) Links {
	if strings.TrimSpace(l.Workdir) == "" {
		l.Workdir = fallback.Workdir
	}
	if strings.TrimSpace(l.VerboseLog) == "" {
		l.VerboseLog = fallback.VerboseLog
	}
	if strings.TrimSpace(l.Reproducer) == "" {
		l.Reproducer = fallback.Reproducer
	}
	if strings.TrimSpace(l.JumpReproducer) == "" {
		l.JumpReproducer = fallback.JumpReproducer
	}
	return l
}

func (l Links) build(runID, suite string) []domain.LogLink {
	r := strings.NewReplacer(placeholderRunID, escapePath(runID), placeholderSuiteName, escapePath(suite))
	return []domain.LogLink{
		{Name: LogWorkdir, Href: r.Replace(l.Workdir)},
		{Name: LogVerbose, Href: r.Replace(l.VerboseLog)},
		{Name: LogReproducer, Href: r.Replace(l.Reproducer)},
		{Name: LogJumpReproducer, Href: r.Replace(l.JumpReproducer)},
	}
}

// escapePath escapes each "/"-separated segment, keeping the separators.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

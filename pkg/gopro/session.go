package gopro

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopmf/pkg/cache"
	"gopmf/pkg/fingerprint"
	"gopmf/pkg/gpmf"
	"gopmf/pkg/log"
	"gopmf/pkg/sysstat"
)

// BuildOptions controls the directory walk in BuildSessions (§4.8).
type BuildOptions struct {
	// ContinueOnError skips a candidate that fails to parse instead of
	// aborting the whole walk, beyond the always-skipped "no GoPro MET
	// track" case.
	ContinueOnError bool
	// AnchorPath, if set, narrows the result to the single session
	// containing the clip opened from this path.
	AnchorPath string
	// Cache, if set, is consulted for a clip's fingerprint before reading
	// its first GPMF sample, and updated with freshly computed ones.
	Cache *cache.Cache
	// Workers bounds how many clips are opened and decoded concurrently.
	// Zero or negative means sequential (one worker).
	Workers int
	// StatusLog, if set, receives periodic CPU/RAM samples for the
	// duration of the directory walk (§4.13). Nil disables reporting.
	StatusLog *log.Logger
	// Debug, when true, makes every clip's later GPMF()/Parse() calls
	// tolerate a truncated sample as a partial result (§7).
	Debug bool
}

// Session is a chronologically ordered group of clips that form one
// continuous GoPro recording.
type Session struct {
	Device DeviceName
	Key    interface{}
	Clips  []*Clip
}

// Duration is the sum of every clip's duration.
func (s *Session) Duration() time.Duration {
	var total time.Duration
	for _, c := range s.Clips {
		total += c.Duration
	}
	return total
}

// Start is the creation time of the first clip.
func (s *Session) Start() time.Time {
	if len(s.Clips) == 0 {
		return time.Time{}
	}
	return s.Clips[0].Created
}

// End is Start plus the session's total Duration.
func (s *Session) End() time.Time {
	return s.Start().Add(s.Duration())
}

// Serial reads the CAME user-data atom, which must be identical across
// every clip in the session (§4.8).
func (s *Session) Serial() (string, error) {
	if len(s.Clips) == 0 {
		return "", gpmf.NewError(gpmf.KindNoSession, "session has no clips")
	}
	serial := s.Clips[0].Meta.Camera
	for _, c := range s.Clips[1:] {
		if c.Meta.Camera != serial {
			return "", gpmf.NewError(gpmf.KindInconsistentSerial, "clips report different CAME serials")
		}
	}
	return serial, nil
}

// GPMF concatenates the parsed GPMF tree of every clip in session order,
// offsetting each subsequent clip's timestamps by the sum of all prior
// clips' (last relative + last duration) — append-then-offset, not a
// rebalanced merge (§4.8, §4.9).
func (s *Session) GPMF() ([]gpmf.Stream, error) {
	var out []gpmf.Stream
	var carry gpmf.Timestamp

	for _, clip := range s.Clips {
		streams, err := clip.Parse()
		if err != nil {
			return nil, err
		}

		last := lastTimestamp(streams)
		for i := range streams {
			offsetTimestamps(&streams[i], carry)
		}
		out = append(out, streams...)

		if last != nil {
			carry = last.Add(carry)
		}
	}
	return out, nil
}

// lastTimestamp finds the timestamp with the greatest End() among a
// clip's top-level streams, used to compute the next clip's carry offset.
func lastTimestamp(streams []gpmf.Stream) *gpmf.Timestamp {
	var best *gpmf.Timestamp
	for i := range streams {
		if streams[i].Time != nil && (best == nil || streams[i].Time.End() > best.End()) {
			best = streams[i].Time
		}
	}
	return best
}

func offsetTimestamps(strm *gpmf.Stream, carry gpmf.Timestamp) {
	if strm.Time != nil {
		shifted := strm.Time.Add(carry)
		strm.Time = &shifted
	}
	for i := range strm.Nested {
		offsetTimestamps(&strm.Nested[i], carry)
	}
}

func videoExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".lrv":
		return true
	default:
		return false
	}
}

// BuildSessions walks root, builds a clip descriptor for every .mp4/.lrv
// candidate, deduplicates by fingerprint, and partitions the result into
// sessions keyed by MUID (Hero 11/12/13) or GUMI (every other device).
// Candidates are decoded by a bounded worker pool (§5) but merged into
// byFingerprint in directory-walk order, so the dedup result does not
// depend on goroutine scheduling.
func BuildSessions(root string, opts BuildOptions) ([]*Session, error) {
	var paths []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // swallow per-entry errors (§4.8 step 1)
		}
		if d.IsDir() || !videoExt(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	stopStatus := startStatusReporting(opts.StatusLog, len(paths))
	results := decodeClipsParallel(paths, opts)
	stopStatus()

	byFingerprint := map[fingerprint.Digest]*Clip{}
	for i, res := range results {
		if res.err != nil {
			var gerr *gpmf.Error
			if errors.As(res.err, &gerr) && gerr.Kind == gpmf.KindNoSuchTrack {
				continue // no GoPro MET track: always skipped
			}
			if opts.ContinueOnError {
				continue
			}
			return nil, fmt.Errorf("%s: %w", paths[i], res.err)
		}

		clip := res.clip
		if existing, ok := byFingerprint[clip.Fingerprint]; ok {
			if mergeErr := existing.Merge(clip); mergeErr != nil {
				return nil, mergeErr
			}
		} else {
			byFingerprint[clip.Fingerprint] = clip
		}
	}

	sessions, err := partitionSessions(byFingerprint)
	if err != nil {
		return nil, err
	}

	if opts.AnchorPath != "" {
		anchor, err := OpenClip(opts.AnchorPath)
		if err != nil {
			return nil, err
		}
		sessions = filterByAnchor(sessions, anchor)
	}

	return sessions, nil
}

type clipResult struct {
	clip *Clip
	err  error
}

// startStatusReporting polls CPU/RAM via sysstat.Reporter and logs a
// sample every couple seconds for the duration of a batch decode,
// returning a func to stop it once the decode phase finishes (§4.13).
// A nil statusLog disables reporting entirely.
func startStatusReporting(statusLog *log.Logger, candidateCount int) func() {
	if statusLog == nil || candidateCount == 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	reporter := sysstat.New(statusLog)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		reporter.Loop(ctx)
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := reporter.Status()
				statusLog.Info().Src("gopro").
					Msgf("decoding %v clips: cpu=%v%% ram=%v%%", candidateCount, status.CPUUsage, status.RAMUsage)
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

// decodeClipsParallel opens and decodes every path using a bounded worker
// pool: a buffered job channel feeds opts.Workers goroutines, each result
// written back into results[i] by index so the caller sees the same
// input-ordered slice a sequential loop would have produced (§5).
func decodeClipsParallel(paths []string, opts BuildOptions) []clipResult {
	results := make([]clipResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int, len(paths))
	for i := range paths {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				var clip *Clip
				var err error
				if opts.Cache != nil {
					clip, err = OpenClipCached(paths[i], opts.Cache)
				} else {
					clip, err = OpenClip(paths[i])
				}
				if clip != nil {
					clip.Debug = opts.Debug
				}
				results[i] = clipResult{clip: clip, err: err}
			}
		}()
	}
	wg.Wait()

	return results
}

func partitionSessions(clips map[fingerprint.Digest]*Clip) ([]*Session, error) {
	type sessionKey struct {
		device DeviceName
		key    string
	}
	grouped := map[sessionKey]*Session{}

	for _, clip := range clips {
		key, err := clip.SessionKey()
		if err != nil {
			return nil, err
		}
		sk := sessionKey{device: clip.Device, key: keyString(key)}
		session, ok := grouped[sk]
		if !ok {
			session = &Session{Device: clip.Device, Key: key}
			grouped[sk] = session
		}
		session.Clips = append(session.Clips, clip)
	}

	out := make([]*Session, 0, len(grouped))
	for _, session := range grouped {
		sort.Slice(session.Clips, func(i, j int) bool {
			return session.Clips[i].TimeOfDay < session.Clips[j].TimeOfDay
		})
		out = append(out, session)
	}
	return out, nil
}

// keyString renders a session grouping key (a [8]uint32 MUID or [4]uint32
// GUMI) as a comparable map key.
func keyString(key interface{}) string {
	switch v := key.(type) {
	case [8]uint32:
		return formatU32Tuple(v[:])
	case [4]uint32:
		return formatU32Tuple(v[:])
	default:
		return ""
	}
}

func formatU32Tuple(vals []uint32) string {
	buf := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		buf = append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return string(buf)
}

func filterByAnchor(sessions []*Session, anchor *Clip) []*Session {
	anchorKey, err := anchor.SessionKey()
	if err != nil {
		return nil
	}
	for _, s := range sessions {
		if s.Device != anchor.Device {
			continue
		}
		if keyString(s.Key) == keyString(anchorKey) {
			return []*Session{s}
		}
	}
	return nil
}

package merge

import (
	"fmt"
	"os"
)

// scratchSet holds the three per-invocation temp files: the two fetched
// inputs and the encoded output. os.CreateTemp picks unique names, so
// concurrent invocations never touch each other's files.
type scratchSet struct {
	voice  string
	music  string
	merged string
}

// newScratchSet allocates the three files under dir (os.TempDir when empty).
// On any allocation failure the files created so far are removed.
func newScratchSet(dir string) (*scratchSet, error) {
	s := &scratchSet{}
	stages := []struct {
		pattern string
		path    *string
	}{
		{"overdub-voice-*", &s.voice},
		{"overdub-music-*", &s.music},
		{"overdub-merged-*.mp3", &s.merged},
	}
	for _, stage := range stages {
		file, err := os.CreateTemp(dir, stage.pattern)
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("create scratch file %s: %w", stage.pattern, err)
		}
		*stage.path = file.Name()
		// Collaborators open the file by path; keeping the handle would
		// only pin it.
		if err := file.Close(); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("close scratch file %s: %w", file.Name(), err)
		}
	}
	return s, nil
}

// cleanup removes every allocated scratch file. Removal failures are
// swallowed: a stray scratch file must never mask the pipeline's primary
// error.
func (s *scratchSet) cleanup() {
	for _, path := range []string{s.voice, s.music, s.merged} {
		if path == "" {
			continue
		}
		_ = os.Remove(path)
	}
}

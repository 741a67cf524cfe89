package transcode

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// Canonical format required by the recognition backends.
const (
	canonicalSampleRate = 16000
	canonicalChannels   = 1
	canonicalBitDepth   = 16
)

// probeCanonical validates that the file at path is a well-formed canonical
// WAV of plausible duration. A sub-threshold clip is reported as
// [KindTooShort]; everything else that fails validation is a codec failure
// because the utility claimed success for output it did not produce.
func probeCanonical(path string, minDuration time.Duration) error {
	f, err := os.Open(path)
	if err != nil {
		return &Error{Kind: KindCodecFailure, Detail: "output missing", Err: err}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return &Error{Kind: KindCodecFailure, Detail: "output is not a valid WAV file"}
	}

	dec.ReadInfo()
	if dec.NumChans != canonicalChannels || dec.SampleRate != canonicalSampleRate || dec.BitDepth != canonicalBitDepth {
		return &Error{
			Kind: KindCodecFailure,
			Detail: fmt.Sprintf("output format %d ch / %d Hz / %d bit, want %d/%d/%d",
				dec.NumChans, dec.SampleRate, dec.BitDepth,
				canonicalChannels, canonicalSampleRate, canonicalBitDepth),
		}
	}

	dur, err := dec.Duration()
	if err != nil {
		return &Error{Kind: KindCodecFailure, Detail: "cannot determine duration", Err: err}
	}
	if dur < minDuration {
		return &Error{
			Kind:   KindTooShort,
			Detail: fmt.Sprintf("clip is %v, need at least %v", dur.Round(time.Millisecond), minDuration),
		}
	}
	return nil
}

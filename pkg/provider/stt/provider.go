// Package stt defines the Transcriber capability shared by all
// speech-recognition backends.
//
// A Transcriber performs a single batch transcription of a canonical audio
// file (mono, 16 kHz, 16-bit linear PCM WAV). New backends are added by
// implementing the interface and inserting them into the configured cascade
// order; nothing in the pipeline branches on a concrete provider type.
//
// Implementations must be safe for concurrent use: one process-wide client
// serves every request.
package stt

import "context"

// Transcriber is the single capability every recognition backend provides.
type Transcriber interface {
	// Transcribe submits the canonical WAV file at wavPath and returns the
	// recognized text. language is a lowercase ISO 639-1 hint ("uk", "en");
	// an empty string asks the backend to auto-detect.
	//
	// Failures are classified: a [*TransientError] means this attempt failed
	// but the backend may recover (warming up, rate limited, network blip);
	// a [*HardError] means the backend cannot serve this request at all
	// (bad credentials, malformed response). The caller bounds the call via
	// ctx; implementations must not install their own deadlines.
	Transcribe(ctx context.Context, wavPath string, language string) (string, error)
}

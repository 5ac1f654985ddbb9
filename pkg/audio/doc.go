// Package audio provides audio processing utilities for the telephony bridge.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: audio formats and immutable frames
//   - codec/mulaw: G.711 μ-law encode/decode
//   - resampler: sample rate conversion
//   - transcode: telephony <-> vendor audio pipelines
//
// Example usage:
//
//	in, err := transcode.NewInbound(pcm.L16Mono16K, logger)
//	frame, err := in.Decode(muLawPayload)
//	vendor, err := in.ToVendor(frame.Bytes())
package audio

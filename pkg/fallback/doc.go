// Package fallback produces the audio played when the AI cannot speak: a
// rendered apology or playback message, cached per voice and text, or a
// generated tone when nothing else is available.
//
// All audio leaves this package as 8 kHz μ-law, ready to be split into
// telephony frames.
//
//	src := fallback.NewSource(fallback.NewOpenAISpeech(apiKey), cache, logger)
//	mu, err := src.Prompt(ctx, "alloy", "Sorry, we are having trouble.")
//	if err != nil {
//	    mu = fallback.Tone(fallback.ToneConfig{})
//	}
package fallback

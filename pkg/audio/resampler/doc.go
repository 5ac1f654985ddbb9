// Package resampler converts mono 16-bit PCM between sample rates using the
// pure Go github.com/tphakala/go-audio-resampling library.
//
// Resample is a one-shot conversion of a complete buffer. Stream keeps the
// filter state between calls and is meant for 20ms frames flowing through a
// call, where restarting the filter per frame would click at every boundary.
//
// Example usage:
//
//	st, err := resampler.NewStream(8000, 16000)
//	if err != nil {
//	    return err
//	}
//	out, err := st.Process(frame)
package resampler

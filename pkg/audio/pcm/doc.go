// Package pcm provides audio format descriptions and immutable audio frames.
//
// Formats cover the G.711 μ-law telephony codec and 16-bit linear mono PCM
// at the rates used by realtime speech vendors (8, 16, 24 and 48 kHz).
//
// Example usage:
//
//	// Bytes in one 20ms telephony frame
//	n := pcm.MuLaw8K.BytesInDuration(pcm.TelephonyFrameDuration) // 160
//
//	// Wrap decoded audio
//	fr := pcm.NewFrame(pcm.L16Mono8K, decoded)
//	energy := fr.Energy()
package pcm

// Package mulaw converts between G.711 μ-law and 16-bit linear PCM.
//
// The functions are pure and allocate exactly one output buffer sized from
// the input length.
package mulaw

import "github.com/zaf/g711"

// Decode converts μ-law bytes to 16-bit signed little-endian PCM. The output
// is always twice the input length.
func Decode(mu []byte) []byte {
	if len(mu) == 0 {
		return []byte{}
	}
	return g711.DecodeUlaw(mu)
}

// Encode converts 16-bit signed little-endian PCM to μ-law. A trailing odd
// byte (a truncated sample) is dropped; use EncodeChecked to learn about it.
func Encode(pcm []byte) []byte {
	out, _ := EncodeChecked(pcm)
	return out
}

// EncodeChecked is Encode that also reports how many trailing bytes were
// dropped because they did not form a full sample.
func EncodeChecked(pcm []byte) (mu []byte, dropped int) {
	dropped = len(pcm) % 2
	pcm = pcm[:len(pcm)-dropped]
	if len(pcm) == 0 {
		return []byte{}, dropped
	}
	return g711.EncodeUlaw(pcm), dropped
}

// DecodeSample decodes a single μ-law byte.
func DecodeSample(b byte) int16 {
	return g711.DecodeUlawFrame(b)
}

// EncodeSample encodes a single 16-bit sample.
func EncodeSample(s int16) byte {
	return g711.EncodeUlawFrame(s)
}

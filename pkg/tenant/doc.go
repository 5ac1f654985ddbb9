// Package tenant loads the tenant file and resolves the call profile for a
// telephony stream.
//
// The file is YAML (JSON works too):
//
//	default: acme
//	selector: .customParameters.tenant // .customParameters.to
//	tuning:
//	  max_turns: 6
//	  vad:
//	    silence_gap: 700ms
//	tenants:
//	  - id: acme
//	    provider: openai
//	    voice: alloy
//	    system_prompt: You answer calls for Acme Plumbing.
//	  - id: closed
//	    mode: playback
//	    playback: We are closed for the holidays.
//
// The selector is a jq expression evaluated over the start event
// (streamSid, callSid, accountSid, customParameters). Its first result names
// the tenant; null or an empty string selects the default.
package tenant

// Package call runs the state machine of one phone call.
//
// A Controller reads telephony messages from a bridge, segments caller
// audio into utterances, forwards them to a realtime AI and plays the
// answers back. Phases move Ringing → Greeting → Listening → Thinking →
// Speaking and end in Ended, or in Error after an unrecoverable AI failure
// (which still plays an apology or tone before hanging up).
//
//	c := call.New(br, call.Options{Resolve: tenants.Resolve, Prompter: src})
//	err := c.Run(ctx)
//
// Close is idempotent and may race with every other trigger: caller hang-up,
// the max-duration watchdog, a wrap-up hang-up or process shutdown.
package call

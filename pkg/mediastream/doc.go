// Package mediastream serves a telephony media stream WebSocket and feeds
// it into a bridge.
//
// The reader decodes inbound JSON envelopes (start, media, mark, stop) and
// pushes them to the bridge without blocking. The writer drains the
// bridge's outbound queue and renders media, mark and clear envelopes with
// the stream id learned from the start message.
//
//	br := bridge.New(bridge.Config{}, logger)
//	conn := mediastream.NewConn(ws, br, logger)
//	go controller.Run(ctx)
//	err := conn.Serve(ctx)
package mediastream

// Package realtime is a vendor-neutral client for streaming speech models.
//
// A Provider dials one vendor and returns a Conn that speaks the vendor's
// protocol but emits normalized Events. Client wraps a Provider with
// connection retries and returns a Handle, which adds a non-blocking send
// queue, per-response sequence numbers, best-effort cancellation and
// protocol-error accounting.
//
//	client := realtime.NewClient(realtime.NewOpenAI(oai, ""), realtime.RetryConfig{}, logger)
//	h, err := client.Connect(ctx, realtime.Session{
//	    SystemPrompt: "You answer the phone for a garage.",
//	    Voice:        "alloy",
//	    Tools:        []realtime.Tool{realtime.EndCallTool()},
//	})
//	if err != nil {
//	    return err // wraps ErrConnect
//	}
//	defer h.Disconnect("done")
//
//	h.SendAudio(pcm24k, true)
//	for ev, err := range h.Events() {
//	    if errors.Is(err, realtime.ErrProtocol) {
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    switch ev.Kind {
//	    case realtime.EventAudio:
//	        play(ev.Audio, ev.Format)
//	    case realtime.EventTurnComplete:
//	        // caller's turn
//	    }
//	}
//
// Two providers are included: OpenAI (Realtime API over websocket) and
// Gemini (Live API through google.golang.org/genai).
package realtime

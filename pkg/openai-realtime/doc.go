// Package openairealtime is a websocket client for OpenAI's Realtime API,
// trimmed to what a telephone bridge needs: manual turn control, pcm16
// audio in and out, response cancellation and function calls.
//
//	client := openairealtime.NewClient(apiKey)
//	conn, err := client.Dial(ctx, &openairealtime.DialConfig{
//	    Model: openairealtime.ModelGPT4oRealtimePreview,
//	})
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	err = conn.UpdateSession(&openairealtime.SessionConfig{
//	    Modalities:        []string{openairealtime.ModalityAudio, openairealtime.ModalityText},
//	    Voice:             openairealtime.VoiceAlloy,
//	    InputAudioFormat:  openairealtime.AudioFormatPCM16,
//	    OutputAudioFormat: openairealtime.AudioFormatPCM16,
//	    ManualTurns:       true,
//	})
//
//	// One caller turn
//	conn.AppendAudio(pcm24k)
//	conn.CommitInput()
//	conn.CreateResponse(nil)
//
//	for ev, err := range conn.Events() {
//	    if errors.Is(err, openairealtime.ErrMalformed) {
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    if ev.Type == openairealtime.EventTypeResponseAudioDelta {
//	        play(ev.Audio)
//	    }
//	}
package openairealtime

// Package pipeline runs conversation turns.
//
// A turn moves through a fixed sequence of stages:
//
//	Idle -> ReadingInput | Capturing -> Transcribing -> Appending
//	     -> Completing -> Appending -> Synthesizing -> Playing -> Idle
//
// Typed turns start at ReadingInput; spoken turns record audio, persist it
// as a scratch WAV file and transcribe it. The user's text is stored, the
// whole history is sent to the chat engine, and the reply is stored as an
// assistant turn. If the session has a provider, a credential and a voice,
// the reply is synthesized, attached to the turn and played.
//
// Failures before the reply is stored abort the turn and are returned.
// Synthesis and playback failures never lose the reply; they are reported
// as warnings on the Result. Only one turn runs at a time.
//
// Basic usage:
//
//	orch, _ := pipeline.New(sess, chat,
//	    pipeline.WithRecorder(rec),
//	    pipeline.WithScratch(scratch),
//	    pipeline.WithTranscriber(whisper),
//	    pipeline.WithSink(sink),
//	)
//	res, err := orch.RunText(ctx, "Hello")
//	fmt.Println(res.Assistant.Content)
package pipeline

package web

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-voicechat/pkg/audioio"
	"github.com/teslashibe/go-voicechat/pkg/conversation"
	"github.com/teslashibe/go-voicechat/pkg/hub"
	"github.com/teslashibe/go-voicechat/pkg/pipeline"
	"github.com/teslashibe/go-voicechat/pkg/session"
	"github.com/teslashibe/go-voicechat/pkg/tts"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// StatusResponse describes the session and pipeline.
type StatusResponse struct {
	session.Status
	State        pipeline.State `json:"state"`
	Busy         bool           `json:"busy"`
	VoiceEnabled bool           `json:"voice_enabled"`
	Clients      int            `json:"clients"`
}

// TurnResponse is returned after a completed turn.
type TurnResponse struct {
	Input          string            `json:"input"`
	User           conversation.Turn `json:"user"`
	Assistant      conversation.Turn `json:"assistant"`
	AudioURL       string            `json:"audio_url,omitempty"`
	Degraded       bool              `json:"degraded"`
	DegradedReason string            `json:"degraded_reason,omitempty"`
	Warnings       []ErrorResponse   `json:"warnings,omitempty"`
	Latency        string            `json:"latency"`
}

// MessageRequest is the body of POST /api/messages
type MessageRequest struct {
	Text string `json:"text"`
}

// RecordRequest is the body of POST /api/record
type RecordRequest struct {
	Seconds float64 `json:"seconds"`
}

// NameRequest selects a provider or voice by name
type NameRequest struct {
	Name string `json:"name"`
}

// CredentialRequest is the body of PUT /api/credentials/:provider
type CredentialRequest struct {
	Secret string `json:"secret"`
}

// VoicesResponse lists the active provider's voices
type VoicesResponse struct {
	Provider string   `json:"provider"`
	Voices   []string `json:"voices"`
	Selected string   `json:"selected,omitempty"`
}

// handleError renders errors as ErrorResponse with a status derived from
// the error kind.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message, Kind: pipeline.KindInvalidInput})
	}

	kind := pipeline.Kind(err)
	status := statusFor(err, kind)
	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed", "path", c.Path(), "kind", kind, "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error(), Kind: kind})
}

func statusFor(err error, kind string) int {
	switch {
	case errors.Is(err, conversation.ErrTurnNotFound),
		errors.Is(err, session.ErrUnknownProvider),
		errors.Is(err, session.ErrVoiceNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrNoProvider), errors.Is(err, session.ErrProviderChanged):
		return fiber.StatusConflict
	}
	switch kind {
	case pipeline.KindBusy:
		return fiber.StatusConflict
	case pipeline.KindEmptyInput, pipeline.KindInvalidInput:
		return fiber.StatusBadRequest
	case pipeline.KindDeviceUnavailable:
		return fiber.StatusServiceUnavailable
	case pipeline.KindCompletionTimeout:
		return fiber.StatusGatewayTimeout
	case pipeline.KindTranscriptionFailed, pipeline.KindCompletionFailed,
		pipeline.KindAuthenticationFailed, pipeline.KindSynthesisFailed,
		pipeline.KindInvalidResponse, pipeline.KindProviderUnavailable,
		pipeline.KindNoVoices:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// handleStatus returns the session and pipeline state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Status:       s.orch.Session().Status(),
		State:        s.orch.State(),
		Busy:         s.orch.Busy(),
		VoiceEnabled: s.orch.VoiceEnabled(),
		Clients:      s.events.ClientCount(),
	})
}

// handleConversation returns the history in order
func (s *Server) handleConversation(c *fiber.Ctx) error {
	return c.JSON(s.orch.Session().History().Turns())
}

// handleMessage runs a typed turn
func (s *Server) handleMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	res, err := s.orch.RunText(c.UserContext(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(newTurnResponse(res))
}

// handleRecord captures speech and runs a voice turn
func (s *Server) handleRecord(c *fiber.Ctx) error {
	var req RecordRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	duration := time.Duration(req.Seconds * float64(time.Second))
	res, err := s.orch.RunVoice(c.UserContext(), duration)
	if err != nil {
		return err
	}
	return c.JSON(newTurnResponse(res))
}

// handleReset clears the conversation
func (s *Server) handleReset(c *fiber.Ctx) error {
	if err := s.orch.Reset(); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleVoices lists the active provider's voices
func (s *Server) handleVoices(c *fiber.Ctx) error {
	sess := s.orch.Session()
	catalog, err := sess.ListVoices(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(VoicesResponse{
		Provider: sess.ProviderName(),
		Voices:   catalog.Names(),
		Selected: sess.VoiceName(),
	})
}

// handleSelectVoice selects a voice by display name
func (s *Server) handleSelectVoice(c *fiber.Ctx) error {
	var req NameRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "voice name required")
	}
	voice, err := s.orch.Session().ResolveVoice(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"provider": voice.Provider, "voice": voice.Name})
}

// handleSelectProvider switches the active TTS provider
func (s *Server) handleSelectProvider(c *fiber.Ctx) error {
	var req NameRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "provider name required")
	}
	if err := s.orch.Session().SetProvider(strings.TrimSpace(req.Name)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"provider": s.orch.Session().ProviderName()})
}

// handleCredential stores or clears a runtime secret. The secret is never
// echoed back.
func (s *Server) handleCredential(c *fiber.Ctx) error {
	var req CredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	// Params alias the request buffer; the session keeps this key.
	provider := utils.CopyString(c.Params("provider"))
	s.orch.Session().SetCredential(provider, strings.TrimSpace(req.Secret))
	return c.JSON(fiber.Map{
		"provider":   provider,
		"configured": s.orch.Session().HasCredential(provider),
	})
}

// handleTurnAudio serves a turn's speech for the UI audio widget.
// Headerless PCM is wrapped in a WAV container so browsers can play it.
func (s *Server) handleTurnAudio(c *fiber.Ctx) error {
	turn, err := s.orch.Session().History().Turn(c.Params("id"))
	if err != nil {
		return err
	}
	if !turn.HasAudio() {
		return fiber.NewError(fiber.StatusNotFound, "turn has no audio")
	}

	data := turn.Audio.Data
	format := tts.Format(turn.Audio.Format)
	if format == tts.FormatPCM {
		data = audioio.EncodeWAV(data, audioio.PCMPlaybackRate)
		format = tts.FormatWAV
	}
	c.Set(fiber.HeaderContentType, format.MIME())
	return c.Send(data)
}

// handleEventsWS streams pipeline events
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	client, err := hub.NewClient(s.events, conn)
	if err != nil {
		conn.Close()
		return
	}
	client.Run()
}

func newTurnResponse(res *pipeline.Result) TurnResponse {
	out := TurnResponse{
		Input:          res.Input,
		User:           res.User,
		Assistant:      res.Assistant,
		Degraded:       res.Degraded,
		DegradedReason: res.DegradedReason,
		Latency:        res.Timings.FormatLatency(),
	}
	if res.Assistant.HasAudio() {
		out.AudioURL = "/api/turns/" + res.Assistant.ID + "/audio"
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, ErrorResponse{Error: w.Error(), Kind: pipeline.Kind(w)})
	}
	return out
}

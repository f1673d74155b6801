package merge

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/overdub/service/internal/response"
	"github.com/overdub/service/internal/storage"
)

// Handler holds the HTTP handler for the merge endpoint.
type Handler struct {
	pipeline *Pipeline
	log      *zap.Logger
}

// NewHandler creates a new merge Handler.
func NewHandler(pipeline *Pipeline, log *zap.Logger) *Handler {
	return &Handler{pipeline: pipeline, log: log}
}

type mergeRequest struct {
	VoiceURL string `json:"voice_url" example:"gs://my-bucket/inputs/voice.mp3"`
	MusicURL string `json:"music_url" example:"gs://my-bucket/inputs/music.mp3"`
}

type mergeData struct {
	OutputURL string `json:"output_url" example:"gs://my-bucket/merged_audio/3f2c6d9a61b24df4a1c0b5e87d4a9f10.mp3"`
}

// Merge godoc
//
//	@Summary		Merge voice over music
//	@Description	Downloads both referenced audio objects, lowers the music by 15 dB, overlays the voice on top, encodes the mix as MP3, and publishes it to the voice input's bucket under merged_audio/.
//	@Tags			audio
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mergeRequest	true	"Voice and music locators"
//	@Success		200		{object}	response.Envelope{data=mergeData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/merge-audio [post]
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	// Both locators are validated before any network call happens.
	voice, err := storage.ParseLocator(req.VoiceURL)
	if err != nil {
		response.ErrorWithKind(w, http.StatusBadRequest, string(KindValidation), "voice_url: "+err.Error())
		return
	}
	music, err := storage.ParseLocator(req.MusicURL)
	if err != nil {
		response.ErrorWithKind(w, http.StatusBadRequest, string(KindValidation), "music_url: "+err.Error())
		return
	}

	result, err := h.pipeline.Run(r.Context(), Request{Voice: voice, Music: music})
	if err != nil {
		var pErr *PipelineError
		if errors.As(err, &pErr) {
			response.ErrorWithKind(w, http.StatusInternalServerError, string(pErr.Kind), pErr.Err.Error())
			return
		}
		h.log.Error("merge failed outside a classified stage", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.OK(w, mergeData{OutputURL: result.Output.String()})
}

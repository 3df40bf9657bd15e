package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/astrasemi/assistant/internal/constants"
	apierrors "github.com/astrasemi/assistant/internal/errors"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalysisHandler exposes the LLM-backed document helpers.
type AnalysisHandler struct {
	analysisService *services.AnalysisService
}

func NewAnalysisHandler(analysisService *services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// SummarizeCSV accepts raw CSV text or rows the client already parsed
func (h *AnalysisHandler) SummarizeCSV(c *gin.Context) {
	type CSVRequest struct {
		CSV          string                   `json:"csv"`
		Data         []map[string]interface{} `json:"data"`
		Headers      []string                 `json:"headers"`
		RowCount     int                      `json:"rowCount"`
		QualityNotes []string                 `json:"qualityNotes"`
	}

	var req CSVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	rows := make([]map[string]string, len(req.Data))
	for i, record := range req.Data {
		row := make(map[string]string, len(record))
		for key, value := range record {
			if value != nil {
				row[key] = fmt.Sprint(value)
			} else {
				row[key] = ""
			}
		}
		rows[i] = row
	}

	summary, err := h.analysisService.SummarizeCSV(c.Request.Context(), services.CSVInput{
		Raw:          req.CSV,
		Rows:         rows,
		Headers:      req.Headers,
		RowCount:     req.RowCount,
		QualityNotes: req.QualityNotes,
	})
	if err != nil {
		respondAnalysisError(c, err, "Failed to analyze CSV data")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// InterpretText summarizes a document or rewrites it as an email or update
func (h *AnalysisHandler) InterpretText(c *gin.Context) {
	type TextRequest struct {
		Text string `json:"text"`
		Mode string `json:"mode"`
	}

	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	result, err := h.analysisService.InterpretText(c.Request.Context(), req.Text, services.TextMode(req.Mode))
	if err != nil {
		respondAnalysisError(c, err, "Failed to interpret text")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExplainImage describes a semiconductor component in a base64 image
func (h *AnalysisHandler) ExplainImage(c *gin.Context) {
	type ImageRequest struct {
		Image    string `json:"image"`
		MimeType string `json:"mimeType"`
	}

	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	result, err := h.analysisService.ExplainImage(c.Request.Context(), req.Image, req.MimeType)
	if err != nil {
		respondAnalysisError(c, err, "Failed to explain image")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExplainTerm returns a glossary entry for a term
func (h *AnalysisHandler) ExplainTerm(c *gin.Context) {
	type GlossaryRequest struct {
		Term  string `json:"term"`
		Level string `json:"level"`
	}

	var req GlossaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	entry, err := h.analysisService.ExplainTerm(c.Request.Context(), req.Term, req.Level)
	if err != nil {
		respondAnalysisError(c, err, "Failed to explain term")
		return
	}

	c.JSON(http.StatusOK, entry)
}

func respondAnalysisError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrAINotConfigured):
		apierrors.ServiceUnavailable(c, "AI provider is not configured on the server")
	case errors.Is(err, services.ErrCSVRequired):
		apierrors.BadRequest(c, "CSV data is required")
	case errors.Is(err, services.ErrCSVInvalid):
		apierrors.BadRequest(c, "CSV data could not be parsed")
	case errors.Is(err, services.ErrCSVTooLarge):
		apierrors.BadRequest(c, "Input data too large. Please use a smaller CSV file.")
	case errors.Is(err, services.ErrTextRequired):
		apierrors.BadRequest(c, "Text input is required")
	case errors.Is(err, services.ErrTextTooLong):
		apierrors.BadRequest(c, fmt.Sprintf("Text is too long. Maximum %d characters.", constants.MaxTextInputSize))
	case errors.Is(err, services.ErrInvalidMode):
		apierrors.BadRequest(c, "Invalid mode")
	case errors.Is(err, services.ErrImageRequired):
		apierrors.BadRequest(c, "Image data is required")
	case errors.Is(err, services.ErrImageTooLarge):
		apierrors.BadRequest(c, "Image is too large. Maximum 20MB.")
	case errors.Is(err, services.ErrTermRequired):
		apierrors.BadRequest(c, "Term is required")
	case errors.Is(err, services.ErrTermTooLong):
		apierrors.BadRequest(c, fmt.Sprintf("Term is too long. Maximum %d characters.", constants.MaxGlossaryTermSize))
	case errors.Is(err, services.ErrInvalidLevel):
		apierrors.BadRequest(c, "Invalid level")
	default:
		// upstream details stay in the log
		applog.Log.Error(fallback, zap.Error(err))
		apierrors.InternalError(c, fallback)
	}
}

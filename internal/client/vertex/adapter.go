package vertexclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/errs"
)

const extractionPrompt = `Read this receipt image and return ONLY a JSON object with these fields:
{"vendorName": string, "transactionDate": "YYYY-MM-DD", "totalAmount": number, "currency": "ISO 4217 code", "paymentHint": string}
totalAmount is the final total including tax. paymentHint is the payment method line if visible (e.g. "VISA ****1234"), otherwise "".
Use "" or 0 for anything you cannot read. No markdown, no commentary.`

type Adapter struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

func NewAdapter(ctx context.Context, log *slog.Logger, projectID, region, model string) (*Adapter, error) {
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		client: client,
		model:  model,
		log:    log,
	}, nil
}

func (a *Adapter) Close() error {
	err := a.client.Close()
	if err != nil && a.log != nil {
		a.log.Error("vertex adapter close failed", "error", err)
	}
	return err
}

// ExtractReceipt runs the vision model over one receipt image and parses
// its structured answer. Model refusals and unparseable output surface as
// validation errors so the caller can ask the user to retake the photo.
func (a *Adapter) ExtractReceipt(ctx context.Context, imageBytes []byte, contentType string) (dto.ReceiptExtraction, error) {
	out := dto.ReceiptExtraction{}

	if a.model == "" {
		return out, fmt.Errorf("vertex model is required")
	}
	format, ok := imageFormat(contentType)
	if !ok {
		return out, errs.NewValidationError("unsupported image content type " + contentType)
	}

	model := a.client.GenerativeModel(a.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(format, imageBytes),
		genai.Text(extractionPrompt),
	)
	if err != nil {
		return out, err
	}

	text := responseText(resp)
	if text == "" {
		return out, errs.NewValidationError("receipt could not be read")
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &out); err != nil {
		return out, errs.NewValidationError("receipt extraction was not parseable")
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	var text string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if p, ok := part.(genai.Text); ok {
				text += string(p)
			}
		}
	}
	return text
}

// imageFormat maps a MIME type to the short format name genai expects.
func imageFormat(contentType string) (string, bool) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return "jpeg", true
	case "image/png":
		return "png", true
	case "image/webp":
		return "webp", true
	case "image/heic":
		return "heic", true
	default:
		return "", false
	}
}

// stripFences tolerates models that wrap JSON in a markdown code fence
// despite the response MIME type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

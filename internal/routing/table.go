package routing

import "github.com/paisaflow/paisaflow/pkg/models"

// Downstream processor names. The router only selects one; dispatch
// belongs to the caller.
const (
	ProcessorVoiceExpense      = "voice-expense"
	ProcessorReceiptOCR        = "receipt-ocr"
	ProcessorSMSParser         = "sms-parser"
	ProcessorExpenseClassifier = "expense-classifier"
	ProcessorQueryAPI          = "query-api"
	ProcessorSettlement        = "settlement"
	ProcessorInsights          = "insights"
	ProcessorManualReview      = "manual-review"
)

// RouteFor maps an intent to its downstream processor. add_expense is
// further keyed by modality; every other intent has a single default.
// The switch is exhaustive over the closed Intent and Modality sets —
// a new intent or modality must be handled here to compile meaningfully.
func RouteFor(intent models.Intent, modality models.Modality) string {
	switch intent {
	case models.IntentAddExpense:
		switch modality {
		case models.ModalityVoice:
			return ProcessorVoiceExpense
		case models.ModalityImage:
			return ProcessorReceiptOCR
		case models.ModalitySMS:
			return ProcessorSMSParser
		case models.ModalityText, models.ModalityAuto:
			return ProcessorExpenseClassifier
		}
		return ProcessorExpenseClassifier
	case models.IntentQueryExpenses:
		return ProcessorQueryAPI
	case models.IntentSplitExpense:
		return ProcessorSettlement
	case models.IntentGetInsights:
		return ProcessorInsights
	case models.IntentUnknown:
		return ProcessorManualReview
	}
	return ProcessorManualReview
}

// ClassifyModality resolves "auto" input types into a concrete
// modality. It is total: audio wins over image, image over SMS, and
// plain text is the final default. Explicit input types pass through.
func ClassifyModality(req *models.RouteRequest) models.Modality {
	if req.InputType != models.ModalityAuto && req.InputType != "" {
		return req.InputType
	}
	switch {
	case req.AudioURL != "":
		return models.ModalityVoice
	case req.ImageURL != "":
		return models.ModalityImage
	case req.SMSText != "":
		return models.ModalitySMS
	default:
		return models.ModalityText
	}
}
